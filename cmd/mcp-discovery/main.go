package main

import "os"

// main is the entry point for the mcp-discovery application. Cobra prints the
// error returned by a command; the exit code is set here.
func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
