package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

// summaryMinWidth is the minimum inner width of the summary and section boxes.
const summaryMinWidth = 44

// ListItem is one numbered entry of a section list.
type ListItem struct {
	Key   string
	Value string
}

// PrintServerDetails writes the summary box followed by a numbered list for
// every non-empty capability.
func PrintServerDetails(w io.Writer, info *discovery.ServerInfo) error {
	size, err := PrintSummary(w, info)
	if err != nil {
		return err
	}

	if len(info.Tools) > 0 {
		items := make([]ListItem, len(info.Tools))
		for i, t := range info.Tools {
			items[i] = ListItem{Key: t.Name, Value: t.Description}
		}
		if err := printSection(w, "Tools", items, size); err != nil {
			return err
		}
	}
	if len(info.Prompts) > 0 {
		items := make([]ListItem, len(info.Prompts))
		for i, p := range info.Prompts {
			items[i] = ListItem{Key: p.Name, Value: p.Description}
		}
		if err := printSection(w, "Prompts", items, size); err != nil {
			return err
		}
	}
	if len(info.Resources) > 0 {
		items := make([]ListItem, len(info.Resources))
		for i, r := range info.Resources {
			items[i] = ListItem{Key: r.Name, Value: resourceValue(r.URI, r.MIMEType, r.Description)}
		}
		if err := printSection(w, "Resources", items, size); err != nil {
			return err
		}
	}
	if len(info.ResourceTemplates) > 0 {
		items := make([]ListItem, len(info.ResourceTemplates))
		for i, r := range info.ResourceTemplates {
			items[i] = ListItem{Key: r.Name, Value: resourceValue(r.URITemplate, r.MIMEType, r.Description)}
		}
		if err := printSection(w, "Resource Templates", items, size); err != nil {
			return err
		}
	}
	return nil
}

func printSection(w io.Writer, label string, items []ListItem, size int) error {
	title := fmt.Sprintf("%s(%d)", BoldStyle.Render(label), len(items))
	if err := PrintHeader(w, title, size); err != nil {
		return err
	}
	return PrintList(w, items)
}

func resourceValue(uri, mimeType, description string) string {
	value := uri
	if mimeType != "" {
		value += DimmedStyle.Render(fmt.Sprintf(" (%s)", mimeType))
	}
	if description != "" {
		value += "\n" + DimmedStyle.Render(description)
	}
	return value
}

// PrintSummary writes a box with the server name and its capability marks and
// returns the inner width used, so following sections can match it.
func PrintSummary(w io.Writer, info *discovery.ServerInfo) (int, error) {
	name := strings.TrimSpace(info.Name + " " + info.Version)
	size := max(summaryMinWidth, lipgloss.Width(name)+4)

	caps := info.Capabilities
	first := fmt.Sprintf("%s Tools    %s Prompts    %s Resources",
		template.Indicator(caps.Tools), template.Indicator(caps.Prompts), template.Indicator(caps.Resources))
	second := fmt.Sprintf("%s Logging  %s Experimental",
		template.Indicator(caps.Logging), template.Indicator(caps.Experimental))
	// Pad the shorter row so both start in the same column.
	if adjust := lipgloss.Width(first) - lipgloss.Width(second); adjust > 0 {
		second += strings.Repeat(" ", adjust)
	}

	lines := []string{
		tableTop(size),
		tableContent(size, TitleStyle.Render(name)),
		tableContent(size, ""),
		tableContent(size, first),
		tableContent(size, second),
		tableBottom(size),
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return 0, err
	}
	return size, nil
}

// PrintHeader writes title centred in a box of the given inner width.
func PrintHeader(w io.Writer, title string, size int) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", tableTop(size), tableContent(size, title), tableBottom(size))
	return err
}

// PrintList writes items as a numbered list separated by blank lines.
func PrintList(w io.Writer, items []ListItem) error {
	for i, item := range items {
		index := TitleStyle.Render(fmt.Sprintf("%d.", i+1))
		if _, err := fmt.Fprintf(w, "%s %s: %s\n\n", index, TitleStyle.Render(item.Key), item.Value); err != nil {
			return err
		}
	}
	return nil
}

func tableTop(width int) string {
	return "┌" + strings.Repeat("─", width) + "┐"
}

func tableBottom(width int) string {
	return "└" + strings.Repeat("─", width) + "┘"
}

// tableContent centres content between the box borders, measuring its display
// width without ANSI styling.
func tableContent(width int, content string) string {
	contentWidth := lipgloss.Width(content)
	left := max(0, (width-contentWidth)/2)
	right := max(0, width-left-contentWidth)
	return "│" + strings.Repeat(" ", left) + content + strings.Repeat(" ", right) + "│"
}
