package marker

import (
	"regexp"
	"strings"

	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

var (
	templateFileRegex = regexp.MustCompile(`\btemplate-file=(?:"([^"]*)"|'([^']*)'|(\S+))`)
	templateRegex     = regexp.MustCompile(`\btemplate=([A-Za-z0-9_]+(?:-[A-Za-z0-9_]+)*)`)
)

// commentClosers are stripped from the end of an unquoted template-file value
// when the marker sits in a comment with no space before the closer.
var commentClosers = []string{"-->", "*/", "#}", "%>"}

// Props are the attributes written on a render start marker line.
type Props struct {
	// Template is the built-in template named by 'template=', or empty when the
	// property is absent or names no built-in template.
	Template template.Name
	// RawTemplate is the 'template=' value exactly as written.
	RawTemplate string
	// TemplateFile is the 'template-file=' value, unresolved.
	TemplateFile string
}

// ParseProps extracts the render block properties from a marker line.
// An unrecognised template name leaves Template empty and is not an error here.
func ParseProps(line string) Props {
	var props Props

	if m := templateFileRegex.FindStringSubmatch(line); m != nil {
		value := m[1] + m[2]
		if m[3] != "" {
			value = m[3]
			for _, closer := range commentClosers {
				value = strings.TrimSuffix(value, closer)
			}
		}
		props.TemplateFile = strings.TrimSpace(value)
	}

	if m := templateRegex.FindStringSubmatch(line); m != nil {
		props.RawTemplate = m[1]
		if name, err := template.ParseName(m[1]); err == nil {
			props.Template = name
		}
	}
	return props
}

// HasUnknownTemplate reports whether 'template=' was written with a name that is not built in.
func (p Props) HasUnknownTemplate() bool {
	return p.RawTemplate != "" && p.Template == ""
}
