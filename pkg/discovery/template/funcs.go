package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

const underlineRune = "─"

var lineBreakRegex = regexp.MustCompile(`\r?\n`)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"plusOne":         plusOne,
		"formatText":      formatText,
		"capabilityTag":   capabilityTag,
		"capability":      capability,
		"underline":       underline,
		"capabilityTitle": capabilityTitle,
		"replaceRegex":    replaceRegex,
		"paramType":       paramType,
		"json":            toJSON,
		"yaml":            toYAML,
		"markdown":        markdownToHTML,
		"anchor":          anchor,
		"indicator":       Indicator,
	}
}

// Indicator renders a boolean as a check or cross mark.
func Indicator(supported bool) string {
	if supported {
		return "✔"
	}
	return "✘"
}

func plusOne(i int) int { return i + 1 }

// formatText replaces each line break in text with newLine (default: the
// text's own line ending) and, when codeWrapChars holds an even number of
// characters, wraps tokens enclosed by each mirrored pair in <code> tags.
// "``" wraps `token`; "[]" wraps [token].
func formatText(text string, opts ...string) string {
	newLine := "\n"
	if strings.Contains(text, "\r\n") {
		newLine = "\r\n"
	}
	if len(opts) > 0 {
		newLine = opts[0]
	}
	result := lineBreakRegex.ReplaceAllLiteralString(text, newLine)

	if len(opts) < 2 {
		return result
	}
	wrap := []rune(opts[1])
	if len(wrap)%2 != 0 {
		return result
	}
	for i := 0; i < len(wrap)/2; i++ {
		left := regexp.QuoteMeta(string(wrap[i]))
		right := regexp.QuoteMeta(string(wrap[len(wrap)-1-i]))
		re := regexp.MustCompile(left + `([\w\-]+)` + right)
		result = re.ReplaceAllString(result, "<code>$1</code>")
	}
	return result
}

// capabilityTag renders a capability for HTML-capable output; unsupported
// capabilities are dimmed and never show a count.
func capabilityTag(label string, supported bool, count ...int) string {
	if !supported {
		return fmt.Sprintf(`<span style="opacity:0.6">%s %s</span>`, Indicator(false), label)
	}
	return fmt.Sprintf("%s %s%s", Indicator(true), label, countSuffix(" (%d)", count))
}

func capability(label string, supported bool, count ...int) string {
	suffix := ""
	if supported {
		suffix = countSuffix(" (%d)", count)
	}
	return fmt.Sprintf("%s %s%s", Indicator(supported), label, suffix)
}

func countSuffix(format string, count []int) string {
	if len(count) == 0 {
		return ""
	}
	return fmt.Sprintf(format, count[0])
}

// underline appends a line of box-drawing characters as wide as label's display width.
func underline(label string) string {
	return label + "\n" + strings.Repeat(underlineRune, lipgloss.Width(label))
}

func capabilityTitle(label string, count int, withUnderline bool) string {
	text := fmt.Sprintf("%s(%d)", label, count)
	if !withUnderline {
		return text
	}
	return underline(text)
}

func replaceRegex(text, pattern, replacement string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("replaceRegex: invalid pattern %q: %w", pattern, err)
	}
	return re.ReplaceAllString(text, replacement), nil
}

func paramType(v fmt.Stringer) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func toJSON(v any, pretty ...bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(pretty) > 0 && pretty[0] {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("json: %w", err)
	}
	return string(data), nil
}

func toYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("yaml: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// markdownToHTML converts a Markdown fragment (typically a description) to HTML.
func markdownToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// anchor builds a GitHub-style heading anchor.
func anchor(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case r == ' ':
			sb.WriteRune('-')
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
