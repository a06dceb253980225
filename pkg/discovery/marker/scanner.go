package marker

import (
	"fmt"

	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

// RenderFunc renders the template resolved for one render block.
type RenderFunc func(tpl *template.OutputTemplate) (string, error)

// Options are the command-level inputs to a scan. Path names the document for
// diagnostics, template-file resolution and the extension fallback.
type Options struct {
	Path           string
	Template       template.Name
	TemplateFile   string
	TemplateString string
}

// UpdateInfo is the result of scanning one document: its original content, the
// line ending chosen for the whole file and the completed render blocks in
// document order.
type UpdateInfo struct {
	Content    string
	LineEnding string
	Locations  []Location
	Warnings   []Warning
}

// Apply splices every rendered block into the original content.
func (u *UpdateInfo) Apply() (string, error) {
	return Splice(u.Content, u.LineEnding, u.Locations)
}

type state int

const (
	stateIdle state = iota
	stateInRender
	stateInRenderWithTemplate
)

type openBlock struct {
	startLine     int
	props         Props
	templateStart int
	inline        *template.InlineTemplate
	inlineStart   int
	inlineEnd     int
}

type scanner struct {
	opts   Options
	render RenderFunc
	lines  []string
	state  state
	block  *openBlock
	info   *UpdateInfo
}

// Scan walks content once, validating marker nesting, capturing inline
// templates and rendering every completed block through render. Nothing is
// rendered past the first error, and the returned UpdateInfo is complete only
// when err is nil.
func Scan(content string, opts Options, render RenderFunc) (*UpdateInfo, error) {
	lines, _ := SplitLines(content)
	s := &scanner{
		opts:   opts,
		render: render,
		lines:  lines,
		info: &UpdateInfo{
			Content:    content,
			LineEnding: DetectLineEnding(content),
		},
	}

	for _, tok := range Tokenize(content) {
		if err := s.step(tok); err != nil {
			return nil, err
		}
	}

	if s.state != stateIdle {
		return nil, newError(ErrNesting, s.block.startLine, opts.Path,
			"Render start marker '%s' at line %d in '%s' has no matching end marker '%s'. Add the end marker after the render section.",
			RenderStartTag, s.block.startLine, opts.Path, RenderEndTag)
	}
	return s.info, nil
}

func (s *scanner) step(tok Token) error {
	switch tok.Kind {
	case RenderStart:
		return s.onRenderStart(tok)
	case TemplateStart:
		return s.onTemplateStart(tok)
	case TemplateEnd:
		return s.onTemplateEnd(tok)
	case RenderEnd:
		return s.onRenderEnd(tok)
	}
	return nil
}

func (s *scanner) onRenderStart(tok Token) error {
	if s.state != stateIdle {
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Duplicate render start marker '%s' found at line %d in '%s'. Remove the extra marker to define a single render section.",
			RenderStartTag, tok.Line, s.opts.Path)
	}
	s.block = &openBlock{
		startLine: tok.Line,
		props:     ParseProps(s.lines[tok.Line-1]),
	}
	s.state = stateInRender
	return nil
}

func (s *scanner) onTemplateStart(tok Token) error {
	switch s.state {
	case stateIdle:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Template start marker '%s' at line %d in '%s' is outside a render section. Ensure it is enclosed within '%s' and '%s' markers.",
			TemplateStartTag, tok.Line, s.opts.Path, RenderStartTag, RenderEndTag)
	case stateInRenderWithTemplate:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Duplicate template start marker '%s' found at line %d in '%s'. Ensure each template section has a single start marker.",
			TemplateStartTag, tok.Line, s.opts.Path)
	}
	if tok.Line == s.block.startLine {
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Template start marker '%s' at line %d in '%s' shares a line with the render start marker. Place each marker on its own line.",
			TemplateStartTag, tok.Line, s.opts.Path)
	}
	s.block.templateStart = tok.Line
	s.state = stateInRenderWithTemplate
	return nil
}

func (s *scanner) onTemplateEnd(tok Token) error {
	switch s.state {
	case stateIdle:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Template end marker '%s' at line %d in '%s' is outside a render section. Ensure it is enclosed within '%s' and '%s' markers.",
			TemplateEndTag, tok.Line, s.opts.Path, RenderStartTag, RenderEndTag)
	case stateInRender:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Template end marker '%s' at line %d in '%s' has no matching start marker '%s'. Add a corresponding start marker before this line.",
			TemplateEndTag, tok.Line, s.opts.Path, TemplateStartTag)
	}

	start := s.block.templateStart
	if tok.Line == start {
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Template end marker '%s' at line %d in '%s' shares a line with its start marker. Place each template marker on its own line.",
			TemplateEndTag, tok.Line, s.opts.Path)
	}

	if s.block.inline != nil {
		s.info.Warnings = append(s.info.Warnings, Warning{
			Line: s.block.inlineStart,
			Path: s.opts.Path,
			Message: fmt.Sprintf(
				"Template section starting at line %d in '%s' was ignored because it was not followed by a render section end. Keep a single template section per render block.",
				s.block.inlineStart, s.opts.Path),
		})
	}

	le := s.info.LineEnding
	s.block.inline = &template.InlineTemplate{
		Body:        JoinLines(s.lines[start:tok.Line-1], le, false),
		BodyLines:   tok.Line - 1 - start,
		MarkerStart: s.lines[start-1],
		MarkerEnd:   s.lines[tok.Line-1],
		LineEnding:  le,
	}
	s.block.inlineStart = start
	s.block.inlineEnd = tok.Line
	s.block.templateStart = 0
	s.state = stateInRender
	return nil
}

func (s *scanner) onRenderEnd(tok Token) error {
	switch s.state {
	case stateIdle:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Render end marker '%s' at line %d in '%s' has no matching start marker '%s'. Add a corresponding start marker before this line.",
			RenderEndTag, tok.Line, s.opts.Path, RenderStartTag)
	case stateInRenderWithTemplate:
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Render end marker '%s' at line %d in '%s' is inside a template section. Close the template section with '%s' before this marker.",
			RenderEndTag, tok.Line, s.opts.Path, TemplateEndTag)
	}

	block := s.block
	if tok.Line == block.startLine {
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Render end marker '%s' at line %d in '%s' shares a line with its start marker. Place each render marker on its own line.",
			RenderEndTag, tok.Line, s.opts.Path)
	}
	if block.inline != nil && tok.Line == block.inlineEnd {
		return newError(ErrNesting, tok.Line, s.opts.Path,
			"Render end marker '%s' at line %d in '%s' shares a line with the template end marker. Place each marker on its own line.",
			RenderEndTag, tok.Line, s.opts.Path)
	}
	if err := s.checkSingleSource(block, tok.Line); err != nil {
		return err
	}

	tpl, err := Select(Selection{
		Path:              s.opts.Path,
		CLITemplate:       s.opts.Template,
		CLITemplateFile:   s.opts.TemplateFile,
		CLITemplateString: s.opts.TemplateString,
		Props:             block.props,
		Inline:            block.inline,
	})
	if err != nil {
		return fmt.Errorf("render section ending at line %d in '%s': %w", tok.Line, s.opts.Path, err)
	}

	rendered, err := s.render(tpl)
	if err != nil {
		return fmt.Errorf("failed to render section at lines %d-%d in '%s': %w", block.startLine, tok.Line, s.opts.Path, err)
	}

	s.info.Locations = append(s.info.Locations, Location{
		StartLine: block.startLine,
		EndLine:   tok.Line,
		Rendered:  rendered,
	})
	s.block = nil
	s.state = stateIdle
	return nil
}

func (s *scanner) checkSingleSource(block *openBlock, line int) error {
	var both string
	switch {
	case block.props.TemplateFile != "" && block.inline != nil:
		both = "both a 'template-file' and an inline template"
	case block.props.Template != "" && block.inline != nil:
		both = "both a 'template' and an inline template"
	case block.props.TemplateFile != "" && block.props.Template != "":
		both = "both a 'template-file' and 'template'"
	default:
		return nil
	}
	return newError(ErrAmbiguousTemplateSource, line, s.opts.Path,
		"Render section ending at line %d in '%s' specifies %s. Choose one template source for this render block.",
		line, s.opts.Path, both)
}

