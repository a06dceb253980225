package marker

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
	"github.com/stackvity/mcp-discovery/pkg/util"
)

// Selection gathers every template source that can apply to one render block.
// The CLI fields apply to the whole command; Props and Inline come from the block.
type Selection struct {
	Path              string
	CLITemplate       template.Name
	CLITemplateFile   string
	CLITemplateString string
	Props             Props
	Inline            *template.InlineTemplate
}

// candidate yields a template when its source is present. A nil template with a
// nil error means the source does not apply and the next candidate is tried.
type candidate func(sel Selection) (*template.OutputTemplate, error)

// precedence is the resolution order for render blocks, highest first.
var precedence = []candidate{
	fromTemplateFile,
	fromNamedTemplate,
	fromTemplateString,
	fromInline,
	rejectUnknownName,
	fromExtension,
}

// Select resolves exactly one template for a render block.
func Select(sel Selection) (*template.OutputTemplate, error) {
	for _, c := range precedence {
		tpl, err := c(sel)
		if err != nil {
			return nil, err
		}
		if tpl != nil {
			return tpl, nil
		}
	}
	return template.Builtin(template.ForFilename(sel.Path)), nil
}

func fromTemplateFile(sel Selection) (*template.OutputTemplate, error) {
	path := sel.CLITemplateFile
	if path == "" {
		path = sel.Props.TemplateFile
	}
	if path == "" {
		return nil, nil
	}
	resolved, err := FindTemplateFile(path, sel.Path)
	if err != nil {
		return nil, err
	}
	return template.FromFile(resolved), nil
}

func fromNamedTemplate(sel Selection) (*template.OutputTemplate, error) {
	if sel.CLITemplate != "" {
		return template.Builtin(sel.CLITemplate), nil
	}
	if sel.Props.Template != "" {
		return template.Builtin(sel.Props.Template), nil
	}
	return nil, nil
}

func fromTemplateString(sel Selection) (*template.OutputTemplate, error) {
	if sel.CLITemplateString == "" {
		return nil, nil
	}
	return template.FromString(sel.CLITemplateString), nil
}

func fromInline(sel Selection) (*template.OutputTemplate, error) {
	if sel.Inline == nil {
		return nil, nil
	}
	return template.FromInline(sel.Inline), nil
}

func rejectUnknownName(sel Selection) (*template.OutputTemplate, error) {
	if !sel.Props.HasUnknownTemplate() {
		return nil, nil
	}
	return nil, fmt.Errorf("%w '%s' (valid: %s)", ErrUnknownTemplate,
		sel.Props.RawTemplate, strings.Join(template.NameStrings(), ", "))
}

func fromExtension(sel Selection) (*template.OutputTemplate, error) {
	return template.Builtin(template.ForFilename(sel.Path)), nil
}

// FindTemplateFile resolves a template file path written for target.
// A relative path is looked up next to target first and then against the
// working directory; the first existing regular file wins. "~" is expanded.
func FindTemplateFile(path, target string) (string, error) {
	expanded := util.ExpandHome(path)

	var candidates []string
	if filepath.IsAbs(expanded) {
		candidates = []string{expanded}
	} else {
		candidates = []string{filepath.Join(filepath.Dir(target), expanded), filepath.Clean(expanded)}
	}
	candidates = slices.Compact(candidates)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: '%s' (searched: %s)", ErrTemplateFileNotFound, path, strings.Join(candidates, ", "))
}
