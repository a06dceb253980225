package discovery

import (
	"fmt"
	"strings"
)

// ServerInfo is everything discovered about one MCP server. It is the data
// context handed to every template. A list is nil when the server does not
// advertise the matching capability.
type ServerInfo struct {
	Name              string             `json:"name" yaml:"name"`
	Version           string             `json:"version" yaml:"version"`
	Title             string             `json:"title,omitempty" yaml:"title,omitempty"`
	Instructions      string             `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	ProtocolVersion   string             `json:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`
	Capabilities      Capabilities       `json:"capabilities" yaml:"capabilities"`
	Tools             []ToolMeta         `json:"tools,omitempty" yaml:"tools,omitempty"`
	Prompts           []Prompt           `json:"prompts,omitempty" yaml:"prompts,omitempty"`
	Resources         []Resource         `json:"resources,omitempty" yaml:"resources,omitempty"`
	ResourceTemplates []ResourceTemplate `json:"resource_templates,omitempty" yaml:"resource_templates,omitempty"`
}

// DisplayName is the name shown in headings, preferring the human-readable title.
func (s *ServerInfo) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// Capabilities records which features the server advertised during initialization.
type Capabilities struct {
	Tools        bool `json:"tools" yaml:"tools"`
	Prompts      bool `json:"prompts" yaml:"prompts"`
	Resources    bool `json:"resources" yaml:"resources"`
	Logging      bool `json:"logging" yaml:"logging"`
	Experimental bool `json:"experimental" yaml:"experimental"`
	Completions  bool `json:"completions" yaml:"completions"`
}

func (c Capabilities) String() string {
	return fmt.Sprintf("tools:%t, prompts:%t, resources:%t, logging:%t, experimental:%t, completions:%t",
		c.Tools, c.Prompts, c.Resources, c.Logging, c.Experimental, c.Completions)
}

// ToolMeta describes one tool and its decoded input parameters.
type ToolMeta struct {
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []ToolParam `json:"params,omitempty" yaml:"params,omitempty"`
}

// ToolParam is one named input of a tool or one field of an object parameter.
type ToolParam struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
}

// ParamKind tags the shape of a ParamType.
type ParamKind string

const (
	ParamPrimitive ParamKind = "primitive"
	ParamObject    ParamKind = "object"
	ParamArray     ParamKind = "array"
)

// ParamType is a decoded JSON-schema type. Primitive types carry Name, objects
// carry Fields and arrays carry their Item type.
type ParamType struct {
	Kind   ParamKind   `json:"kind" yaml:"kind"`
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	Fields []ToolParam `json:"fields,omitempty" yaml:"fields,omitempty"`
	Item   *ParamType  `json:"item,omitempty" yaml:"item,omitempty"`
}

// Primitive returns a primitive ParamType such as "string" or "integer|null".
func Primitive(name string) ParamType {
	return ParamType{Kind: ParamPrimitive, Name: name}
}

// Object returns an object ParamType with the given fields.
func Object(fields ...ToolParam) ParamType {
	return ParamType{Kind: ParamObject, Fields: fields}
}

// ArrayOf returns an array ParamType whose elements are item.
func ArrayOf(item ParamType) ParamType {
	return ParamType{Kind: ParamArray, Item: &item}
}

// String renders the type the way documents show it:
// "string", "{city : string, days : integer}" or "string [ ]".
func (p ParamType) String() string {
	switch p.Kind {
	case ParamObject:
		fields := make([]string, len(p.Fields))
		for i, f := range p.Fields {
			fields[i] = f.Name + " : " + f.Type.String()
		}
		return "{" + strings.Join(fields, ", ") + "}"
	case ParamArray:
		if p.Item == nil {
			return "any [ ]"
		}
		return p.Item.String() + " [ ]"
	default:
		return p.Name
	}
}

// Prompt describes one prompt template offered by the server.
type Prompt struct {
	Name        string           `json:"name" yaml:"name"`
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// PromptArgument is one argument accepted by a prompt.
type PromptArgument struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// Resource describes one concrete resource exposed by the server.
type Resource struct {
	URI         string `json:"uri" yaml:"uri"`
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Size        int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// ResourceTemplate describes a parameterised family of resources.
type ResourceTemplate struct {
	URITemplate string `json:"uri_template" yaml:"uri_template"`
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}
