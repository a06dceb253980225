package marker

import (
	"regexp"
	"strings"
)

// Marker tags as they appear in documents.
const (
	RenderStartTag   = "mcp-discovery-render"
	RenderEndTag     = "mcp-discovery-render-end"
	TemplateStartTag = "mcp-discovery-template"
	TemplateEndTag   = "mcp-discovery-template-end"
)

// A tag must not run on into a word or a "-word" suffix, so
// "mcp-discovery-render-endx" is not a marker but "mcp-discovery-render-->" is.
var markerRegex = regexp.MustCompile(`\bmcp-discovery(-template|-render)(-end)?(?:[^\w-]|-[^\w]|-?$)`)

// Kind classifies a marker.
type Kind int

const (
	RenderStart Kind = iota
	RenderEnd
	TemplateStart
	TemplateEnd
)

func (k Kind) String() string {
	switch k {
	case RenderStart:
		return RenderStartTag
	case RenderEnd:
		return RenderEndTag
	case TemplateStart:
		return TemplateStartTag
	case TemplateEnd:
		return TemplateEndTag
	default:
		return "unknown"
	}
}

// Token is one marker occurrence. Offset is the byte offset of the tag and Line
// is its 1-based line number.
type Token struct {
	Kind   Kind
	Offset int
	Line   int
}

// Tokenize returns every marker in content in order of occurrence.
func Tokenize(content string) []Token {
	matches := markerRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	tokens := make([]Token, 0, len(matches))
	line, scanned := 1, 0
	for _, m := range matches {
		offset := m[0]
		line += strings.Count(content[scanned:offset], "\n")
		scanned = offset

		section := content[m[2]:m[3]]
		closing := m[4] >= 0
		var kind Kind
		switch {
		case section == "-render" && !closing:
			kind = RenderStart
		case section == "-render":
			kind = RenderEnd
		case !closing:
			kind = TemplateStart
		default:
			kind = TemplateEnd
		}
		tokens = append(tokens, Token{Kind: kind, Offset: offset, Line: line})
	}
	return tokens
}
