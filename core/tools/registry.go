package tools

import (
	"encoding/json"
	"fmt"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
)

// Registry maps tool names to specs. It is validated once at construction
// and read-only afterwards, so lookups need no locking.
type Registry struct {
	specs map[string]Spec
	order []string
}

// NewRegistry validates the specs and builds a registry. Empty and duplicate
// names are rejected so that unknown-name failures can only come from the
// peer, never from local wiring.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("tool spec with empty name")
		}
		if _, exists := r.specs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", spec.Name)
		}
		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)
	}
	return r, nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions returns the wire form of every registered tool in
// registration order, ready for the session configuration.
func (r *Registry) Definitions() ([]realtime.ToolDefinition, error) {
	definitions := make([]realtime.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		definition, err := r.specs[name].Definition()
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, definition)
	}
	return definitions, nil
}

// Validate checks that name is registered and that the raw arguments decode
// to an object carrying every required parameter. It returns
// *UnknownToolError or *InvalidArgumentsError accordingly.
func (r *Registry) Validate(name string, arguments json.RawMessage) error {
	spec, ok := r.specs[name]
	if !ok {
		return &UnknownToolError{Name: name}
	}

	fields := map[string]json.RawMessage{}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &fields); err != nil {
			return &InvalidArgumentsError{Name: name, Reason: "arguments are not a JSON object", Err: err}
		}
	}
	for _, required := range spec.Required {
		if _, present := fields[required]; !present {
			return &InvalidArgumentsError{Name: name, Reason: fmt.Sprintf("missing required parameter %q", required)}
		}
	}
	return nil
}
