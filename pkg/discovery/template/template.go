package template

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates
var assets embed.FS

// partialsPattern selects the shared define blocks every template may call.
const partialsPattern = "templates/partials/*.tmpl"

// ErrUnknownName is returned by ParseName for identifiers that are not built-in templates.
var ErrUnknownName = errors.New("unknown built-in template")

// Name identifies one of the built-in templates.
type Name string

// Built-in template identifiers, as accepted by --template and the template= marker property.
const (
	Markdown      Name = "md"
	MarkdownPlain Name = "md-plain"
	HTML          Name = "html"
	Text          Name = "txt"
)

// Names lists every built-in template in display order.
var Names = []Name{Markdown, MarkdownPlain, HTML, Text}

var builtinFiles = map[Name]string{
	Markdown:      "templates/markdown.tmpl",
	MarkdownPlain: "templates/markdown_plain.tmpl",
	HTML:          "templates/html.tmpl",
	Text:          "templates/text.tmpl",
}

// ParseName converts an identifier into a built-in template Name.
func ParseName(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w '%s' (valid: %s)", ErrUnknownName, s, strings.Join(NameStrings(), ", "))
}

// NameStrings returns the built-in identifiers as plain strings.
func NameStrings() []string {
	out := make([]string, len(Names))
	for i, n := range Names {
		out[i] = string(n)
	}
	return out
}

// ForFilename infers the built-in template from a file extension.
// Markdown variants map to Markdown, .htm/.html to HTML and everything else to Text.
func ForFilename(path string) Name {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "md", "markdown", "mdown", "mkd", "mdtxt", "mdtext":
		return Markdown
	case "htm", "html":
		return HTML
	default:
		return Text
	}
}

// Kind describes where an OutputTemplate's text comes from.
type Kind int

const (
	KindNone Kind = iota
	KindBuiltin
	KindFile
	KindString
	KindInline
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindFile:
		return "file"
	case KindString:
		return "string"
	case KindInline:
		return "inline"
	default:
		return "none"
	}
}

// InlineTemplate is a template body captured between template markers inside a
// render block, together with the verbatim marker lines that surround it.
// BodyLines counts the captured lines, so a body of one blank line is told
// apart from no body at all.
type InlineTemplate struct {
	Body        string
	BodyLines   int
	MarkerStart string
	MarkerEnd   string
	LineEnding  string
}

// OutputTemplate is a resolved template source.
type OutputTemplate struct {
	Kind   Kind
	Name   Name
	Path   string
	Source string
	Inline *InlineTemplate
}

// None is the absent template; print mode falls back to the terminal summary.
func None() *OutputTemplate { return &OutputTemplate{Kind: KindNone} }

// Builtin returns the shipped template n.
func Builtin(n Name) *OutputTemplate { return &OutputTemplate{Kind: KindBuiltin, Name: n} }

// FromFile returns a template read from path at render time.
func FromFile(path string) *OutputTemplate { return &OutputTemplate{Kind: KindFile, Path: path} }

// FromString returns a template whose text is s.
func FromString(s string) *OutputTemplate { return &OutputTemplate{Kind: KindString, Source: s} }

// FromInline returns a template captured from a render block.
func FromInline(info *InlineTemplate) *OutputTemplate {
	return &OutputTemplate{Kind: KindInline, Inline: info}
}

// String describes the template source for logs.
func (t *OutputTemplate) String() string {
	switch t.Kind {
	case KindBuiltin:
		return "builtin:" + string(t.Name)
	case KindFile:
		return "file:" + t.Path
	default:
		return t.Kind.String()
	}
}

// Content returns the template text. A custom template file that cannot be read
// yields an in-band error marker instead of failing, so one bad block does not
// destroy the rest of a document.
func (t *OutputTemplate) Content() string {
	switch t.Kind {
	case KindBuiltin:
		data, err := assets.ReadFile(builtinFiles[t.Name])
		if err != nil {
			return ""
		}
		return string(data)
	case KindFile:
		data, err := os.ReadFile(t.Path)
		if err != nil {
			return fmt.Sprintf(">> ERROR LOADING TEMPLATE FILE : '%s' <<", t.Path)
		}
		return string(data)
	case KindString:
		return t.Source
	case KindInline:
		if t.Inline == nil {
			return ""
		}
		return t.Inline.Body
	default:
		return ""
	}
}

// Render executes the template against data. Inline templates re-emit their
// marker lines and body ahead of the output so the block survives the next update.
func (t *OutputTemplate) Render(executor Executor, data any) (string, error) {
	var sb strings.Builder
	if err := executor.Execute(&sb, t.String(), t.Content(), data); err != nil {
		return "", err
	}
	if t.Kind != KindInline || t.Inline == nil {
		return sb.String(), nil
	}

	le := t.Inline.LineEnding
	if le == "" {
		le = "\n"
	}
	var out strings.Builder
	out.WriteString(t.Inline.MarkerStart)
	out.WriteString(le)
	if t.Inline.BodyLines > 0 || t.Inline.Body != "" {
		out.WriteString(t.Inline.Body)
		out.WriteString(le)
	}
	out.WriteString(t.Inline.MarkerEnd)
	out.WriteString(le)
	out.WriteString(sb.String())
	return out.String(), nil
}

// Executor renders template text against a data value.
type Executor interface {
	// Execute parses content under name and writes the result for data to w.
	// Parse and execution failures are both returned as errors.
	Execute(w io.Writer, name string, content string, data any) error
}

// GoTemplateExecutor implements Executor with text/template, the helper FuncMap
// and the embedded partials.
type GoTemplateExecutor struct {
	once     sync.Once
	base     *template.Template
	parseErr error
}

// NewGoTemplateExecutor creates the default executor.
func NewGoTemplateExecutor() *GoTemplateExecutor {
	return &GoTemplateExecutor{}
}

func (e *GoTemplateExecutor) partials() (*template.Template, error) {
	e.once.Do(func() {
		e.base, e.parseErr = template.New("partials").Funcs(Funcs()).ParseFS(assets, partialsPattern)
	})
	return e.base, e.parseErr
}

// Execute implements Executor.
func (e *GoTemplateExecutor) Execute(w io.Writer, name string, content string, data any) error {
	base, err := e.partials()
	if err != nil {
		return fmt.Errorf("failed to load template partials: %w", err)
	}
	set, err := base.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone template partials: %w", err)
	}
	tmpl, err := set.New(name).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("template execution failed for %q: %w", name, err)
	}
	return nil
}
