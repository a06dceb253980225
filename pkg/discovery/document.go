package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stackvity/mcp-discovery/pkg/discovery/encoding"
	"github.com/stackvity/mcp-discovery/pkg/discovery/marker"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
	"github.com/stackvity/mcp-discovery/pkg/util"
)

// WriteOptions selects the document target and template for print, create and update.
type WriteOptions struct {
	Filename       string
	Template       template.Name
	TemplateFile   string
	TemplateString string
}

// MatchTemplate resolves the template used by print and create: a template
// file, then a built-in name, then a template string, then the target's
// extension. Without a target and without an explicit source it returns a
// template of kind none.
func (w WriteOptions) MatchTemplate() (*template.OutputTemplate, error) {
	switch {
	case w.TemplateFile != "":
		path, err := marker.FindTemplateFile(w.TemplateFile, w.Filename)
		if err != nil {
			return nil, err
		}
		return template.FromFile(path), nil
	case w.Template != "":
		name, err := template.ParseName(string(w.Template))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownTemplate, err)
		}
		return template.Builtin(name), nil
	case w.TemplateString != "":
		return template.FromString(w.TemplateString), nil
	case w.Filename != "":
		return template.Builtin(template.ForFilename(w.Filename)), nil
	default:
		return template.None(), nil
	}
}

// UpdateResult summarises an in-place update.
type UpdateResult struct {
	Blocks   int
	Warnings []marker.Warning
	Changed  bool
	Encoding string
}

// Documenter renders server information into documents.
type Documenter struct {
	logger   *slog.Logger
	executor template.Executor
	encoding encoding.EncodingHandler
}

// NewDocumenter creates a Documenter. Nil dependencies fall back to the
// text/template executor and a UTF-8 default encoding handler.
func NewDocumenter(handler slog.Handler, executor template.Executor, enc encoding.EncodingHandler) *Documenter {
	if executor == nil {
		executor = template.NewGoTemplateExecutor()
	}
	if enc == nil {
		enc = encoding.NewGoCharsetEncodingHandler(DefaultEncoding)
	}
	return &Documenter{
		logger:   slog.New(handler).With(slog.String("component", "documenter")),
		executor: executor,
		encoding: enc,
	}
}

// Render renders info with the template matched by opts.
func (d *Documenter) Render(opts WriteOptions, info *ServerInfo) (string, error) {
	tpl, err := opts.MatchTemplate()
	if err != nil {
		return "", err
	}
	if tpl.Kind == template.KindNone {
		return "", fmt.Errorf("%w: no template selected", ErrConfigValidation)
	}
	return d.render(tpl, info)
}

// Create renders info and writes it to opts.Filename, creating missing parent directories.
func (d *Documenter) Create(opts WriteOptions, info *ServerInfo) error {
	if opts.Filename == "" {
		return fmt.Errorf("%w: a filename is required to create a document", ErrConfigValidation)
	}
	out, err := d.Render(opts, info)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Filename), 0o755); err != nil {
		return fmt.Errorf("%w: '%s': %w", ErrWriteFailed, opts.Filename, err)
	}
	if err := util.WriteFileAtomic(opts.Filename, []byte(out), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	d.logger.Info("Document created", slog.String("path", opts.Filename), slog.Int("bytes", len(out)))
	return nil
}

// Update re-renders every marker block of opts.Filename in place. All
// validation and rendering happen before the single write; on any error the
// file is left untouched.
func (d *Documenter) Update(opts WriteOptions, info *ServerInfo) (*UpdateResult, error) {
	path := opts.Filename
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: File '%s' not found", ErrTargetNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is a directory", ErrTargetNotFound, path)
	}
	if opts.Template != "" {
		if _, err := template.ParseName(string(opts.Template)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownTemplate, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	if d.encoding.IsBinary(raw) {
		return nil, fmt.Errorf("%w: '%s'", ErrBinaryTarget, path)
	}
	decoded, encodingName, _, err := d.encoding.DetectAndDecode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode '%s': %w", path, err)
	}

	scan, err := marker.Scan(string(decoded), marker.Options{
		Path:           path,
		Template:       opts.Template,
		TemplateFile:   opts.TemplateFile,
		TemplateString: opts.TemplateString,
	}, func(tpl *template.OutputTemplate) (string, error) {
		return d.render(tpl, info)
	})
	if err != nil {
		return nil, err
	}
	for _, w := range scan.Warnings {
		d.logger.Warn(w.Message, slog.String("path", w.Path), slog.Int("line", w.Line))
	}

	updated, err := scan.Apply()
	if err != nil {
		return nil, err
	}
	result := &UpdateResult{
		Blocks:   len(scan.Locations),
		Warnings: scan.Warnings,
		Encoding: encodingName,
		Changed:  updated != scan.Content,
	}
	if !result.Changed {
		d.logger.Info("Document already up to date", slog.String("path", path), slog.Int("blocks", result.Blocks))
		return result, nil
	}

	encoded, err := d.encoding.Encode([]byte(updated), encodingName)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrWriteFailed, path, err)
	}
	if err := util.WriteFileAtomic(path, encoded, stat.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	d.logger.Info("Document updated", slog.String("path", path), slog.Int("blocks", result.Blocks), slog.String("encoding", encodingName))
	return result, nil
}

func (d *Documenter) render(tpl *template.OutputTemplate, info *ServerInfo) (string, error) {
	d.logger.Debug("Rendering template", slog.String("template", tpl.String()))
	out, err := tpl.Render(d.executor, info)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRenderEngine, tpl, err)
	}
	return out, nil
}
