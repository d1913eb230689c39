package netgateway

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// refKey is the intrinsic that references another resource of the template.
const refKey = "Ref"

// Template is a stack of gateway resources. JSON templates are accepted as
// well, being a subset of YAML.
type Template struct {
	Description string                      `yaml:"Description,omitempty"`
	Resources   map[string]TemplateResource `yaml:"Resources"`
}

// TemplateResource is one entry of the Resources section.
type TemplateResource struct {
	Type       string         `yaml:"Type"`
	Properties map[string]any `yaml:"Properties"`
}

// ParseTemplate decodes and structurally validates a template.
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// validate checks names, types and references without looking at
// properties; property checks belong to each resource type.
func (t *Template) validate() error {
	if len(t.Resources) == 0 {
		return errors.New("invalid template: no resources")
	}
	var errs []error
	for _, name := range t.names() {
		res := t.Resources[name]
		if err := validateResourceName(name); err != nil {
			errs = append(errs, err)
		}
		if _, ok := resourceMapping[res.Type]; !ok {
			errs = append(errs, fmt.Errorf("resource %q: unknown type %q (supported: %v)", name, res.Type, SupportedTypes()))
		}
		for _, ref := range collectRefs(res.Properties) {
			if ref == name {
				errs = append(errs, fmt.Errorf("resource %q references itself", name))
			} else if _, ok := t.Resources[ref]; !ok {
				errs = append(errs, fmt.Errorf("resource %q references unknown resource %q", name, ref))
			}
		}
	}
	return errors.Join(errs...)
}

// names returns the resource names in sorted order.
func (t *Template) names() []string {
	return slices.Sorted(maps.Keys(t.Resources))
}

// namesOfType returns the sorted names of resources of one type.
func (t *Template) namesOfType(typ string) []string {
	var out []string
	for _, name := range t.names() {
		if t.Resources[name].Type == typ {
			out = append(out, name)
		}
	}
	return out
}

// refTarget reports whether v is a {"Ref": name} value.
func refTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	name, ok := m[refKey].(string)
	return name, ok
}

// collectRefs returns every resource name referenced within v.
func collectRefs(v any) []string {
	if name, ok := refTarget(v); ok {
		return []string{name}
	}
	var out []string
	switch t := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			out = append(out, collectRefs(t[k])...)
		}
	case []any:
		for _, item := range t {
			out = append(out, collectRefs(item)...)
		}
	}
	return out
}

// resolveRefs returns a copy of props with every reference replaced by
// lookup(name). lookup reports false for a resource that cannot be
// referenced yet.
func resolveRefs(props map[string]any, lookup func(name string) (string, bool)) (map[string]any, error) {
	out, err := resolveValue(props, lookup)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.(map[string]any), nil
}

func resolveValue(v any, lookup func(string) (string, bool)) (any, error) {
	if name, ok := refTarget(v); ok {
		id, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("reference to %q cannot be resolved", name)
		}
		return id, nil
	}
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return nil, nil
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			r, err := resolveValue(item, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			r, err := resolveValue(item, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}
