// Package tools holds the static registry of tools the session exposes to
// the realtime peer.
//
// Specs are typed: the parameter schema is reflected once from the handler's
// argument struct, and the registry validates names and raw arguments before
// any execution is scheduled.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
)

// Handler executes a tool call against raw JSON arguments.
type Handler func(ctx context.Context, arguments json.RawMessage) (string, error)

// Spec describes one tool: name, argument schema, and handler. Specs are
// immutable once handed to a registry.
type Spec struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Required    []string

	handler Handler
}

// New builds a typed tool spec. The parameter schema and required list are
// reflected from T; the handler receives decoded arguments.
func New[T any](name, description string, handler func(ctx context.Context, args T) (string, error)) Spec {
	reflector := jsonschema.Reflector{DoNotReference: true, Anonymous: true, ExpandedStruct: true}
	schema := reflector.Reflect(new(T))
	schema.Version = ""

	return Spec{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Required:    schema.Required,
		handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args T
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", &InvalidArgumentsError{Name: name, Reason: "arguments do not decode", Err: err}
			}
			return handler(ctx, args)
		},
	}
}

// Call runs the spec's handler.
func (s Spec) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	if s.handler == nil {
		return "", fmt.Errorf("tool %q has no handler", s.Name)
	}
	return s.handler(ctx, arguments)
}

// Definition returns the wire form advertised to the peer through the
// session configuration.
func (s Spec) Definition() (realtime.ToolDefinition, error) {
	parameters, err := json.Marshal(s.Parameters)
	if err != nil {
		return realtime.ToolDefinition{}, fmt.Errorf("failed to encode schema for tool %q: %w", s.Name, err)
	}
	return realtime.ToolDefinition{
		Type:        "function",
		Name:        s.Name,
		Description: s.Description,
		Parameters:  parameters,
	}, nil
}
