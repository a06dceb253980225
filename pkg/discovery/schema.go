package discovery

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ToolParams decodes a tool input schema into its top-level parameters, sorted
// by name. The schema may be any JSON-compatible value; it is normalised through
// JSON before walking. A nil schema or one without properties has no parameters.
func ToolParams(schema any) ([]ToolParam, error) {
	if schema == nil {
		return nil, nil
	}
	object, err := normaliseSchema(schema)
	if err != nil {
		return nil, err
	}
	return objectParams(object, "")
}

func normaliseSchema(schema any) (map[string]any, error) {
	if m, ok := schema.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: schema is not a JSON object: %w", ErrInvalidSchema, err)
	}
	return m, nil
}

// objectParams walks the properties of an object schema. path names the
// enclosing property for error messages.
func objectParams(object map[string]any, path string) ([]ToolParam, error) {
	raw, ok := object["properties"]
	if !ok || raw == nil {
		return nil, nil
	}
	properties, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'properties'%s is not an object", ErrInvalidSchema, at(path))
	}

	required := stringList(object["required"])
	params := make([]ToolParam, 0, len(properties))
	for name, value := range properties {
		propPath := joinPath(path, name)
		prop, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: property '%s' is not an object", ErrInvalidSchema, propPath)
		}
		paramType, err := paramTypeOf(prop, propPath)
		if err != nil {
			return nil, err
		}
		description, _ := prop["description"].(string)
		params = append(params, ToolParam{
			Name:        name,
			Type:        paramType,
			Description: description,
			Required:    slices.Contains(required, name),
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params, nil
}

func paramTypeOf(prop map[string]any, path string) (ParamType, error) {
	switch typ := prop["type"].(type) {
	case string:
		switch typ {
		case "array":
			items, ok := prop["items"].(map[string]any)
			if !ok {
				return ArrayOf(Primitive("any")), nil
			}
			item, err := paramTypeOf(items, path+"[]")
			if err != nil {
				return ParamType{}, err
			}
			return ArrayOf(item), nil
		case "object":
			fields, err := objectParams(prop, path)
			if err != nil {
				return ParamType{}, err
			}
			return Object(fields...), nil
		default:
			return Primitive(typ), nil
		}
	case []any:
		return Primitive(strings.Join(stringList(typ), "|")), nil
	}

	if _, ok := prop["enum"]; ok {
		return Primitive("enum"), nil
	}
	for _, key := range []string{"anyOf", "oneOf"} {
		if members, ok := prop[key].([]any); ok && len(members) > 0 {
			return Primitive(unionName(members)), nil
		}
	}
	return Primitive("any"), nil
}

// unionName joins the displayed types of the members of an anyOf or oneOf.
func unionName(members []any) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		member, ok := m.(map[string]any)
		if !ok {
			continue
		}
		t, err := paramTypeOf(member, "")
		if err != nil {
			continue
		}
		if s := t.String(); !slices.Contains(names, s) {
			names = append(names, s)
		}
	}
	if len(names) == 0 {
		return "any"
	}
	return strings.Join(names, "|")
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func at(path string) string {
	if path == "" {
		return ""
	}
	return " of '" + path + "'"
}
