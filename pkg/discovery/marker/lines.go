package marker

import (
	"fmt"
	"slices"
	"strings"
)

// Line endings recognised in documents.
const (
	LF   = "\n"
	CRLF = "\r\n"
)

// DetectLineEnding returns the ending of the first line of content.
// Content without any line break is treated as LF.
func DetectLineEnding(content string) string {
	idx := strings.IndexByte(content, '\n')
	if idx > 0 && content[idx-1] == '\r' {
		return CRLF
	}
	return LF
}

// SplitLines splits content into lines without their endings. A single final
// line break does not produce a trailing empty line; hasFinalNewline reports it.
func SplitLines(content string) (lines []string, hasFinalNewline bool) {
	if content == "" {
		return nil, false
	}
	hasFinalNewline = strings.HasSuffix(content, "\n")
	trimmed := strings.TrimSuffix(content, "\n")
	lines = strings.Split(trimmed, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, hasFinalNewline
}

// JoinLines joins lines with lineEnding, appending a final ending when finalNewline is set.
func JoinLines(lines []string, lineEnding string, finalNewline bool) string {
	out := strings.Join(lines, lineEnding)
	if finalNewline && len(lines) > 0 {
		out += lineEnding
	}
	return out
}

// Location is a completed render block: the 1-based lines of its start and end
// markers and the text that replaces everything strictly between them.
type Location struct {
	StartLine int
	EndLine   int
	Rendered  string
}

// Splice replaces the body of every location with its rendered text and joins
// the result with lineEnding. Locations must be in document order and must not
// overlap; they are applied last to first so earlier line numbers stay valid.
// The marker lines and all content outside the locations are kept unchanged.
func Splice(content, lineEnding string, locations []Location) (string, error) {
	lines, finalNewline := SplitLines(content)
	if err := validateLocations(locations, len(lines)); err != nil {
		return "", err
	}

	for i := len(locations) - 1; i >= 0; i-- {
		loc := locations[i]
		rendered, _ := SplitLines(loc.Rendered)
		// 0-based [StartLine, EndLine-1) covers the lines between the two markers.
		lines = slices.Replace(lines, loc.StartLine, loc.EndLine-1, rendered...)
	}
	return JoinLines(lines, lineEnding, finalNewline), nil
}

func validateLocations(locations []Location, lineCount int) error {
	prevEnd := 0
	for i, loc := range locations {
		switch {
		case loc.StartLine < 1 || loc.EndLine > lineCount:
			return fmt.Errorf("%w: block %d spans lines %d-%d of a %d line document",
				ErrInvalidLocation, i+1, loc.StartLine, loc.EndLine, lineCount)
		case loc.EndLine <= loc.StartLine:
			return fmt.Errorf("%w: block %d ends at line %d, not after its start at line %d",
				ErrInvalidLocation, i+1, loc.EndLine, loc.StartLine)
		case loc.StartLine < prevEnd:
			return fmt.Errorf("%w: block %d starting at line %d overlaps the previous block ending at line %d",
				ErrInvalidLocation, i+1, loc.StartLine, prevEnd)
		}
		prevEnd = loc.EndLine
	}
	return nil
}
