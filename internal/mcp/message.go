// Package mcp implements the protocol engine: a newline-framed
// JSON request/response loop over a byte stream, speaking exactly two
// methods, list_tools and call_tool, and answering every request with
// the uniform envelope regardless of what went wrong.
package mcp

import "encoding/json"

// Methods the engine accepts. Anything else is "Method not supported".
const (
	MethodListTools = "list_tools"
	MethodCallTool  = "call_tool"
)

// Request is one decoded protocol line. The wire shape is the flat
// {method, name, args} form; the wrapped {method, params: {name, args}}
// form the HTTP bridge accepts is normalized into this same struct.
// ID is advisory: parsed when present, never required, never echoed by
// the engine itself.
type Request struct {
	ID     any             `json:"id,omitempty"`
	Method string          `json:"method"`
	Name   string          `json:"name,omitempty"`
	Args   map[string]any  `json:"args,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// params is the wrapped call_tool payload.
type params struct {
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// normalize folds a wrapped params object into the flat name/args
// fields. Flat fields win when both are present, matching the bridge's
// documented canonical form {id, method, name, args}.
func (r *Request) normalize() error {
	if len(r.Params) == 0 {
		return nil
	}
	var p params
	if err := json.Unmarshal(r.Params, &p); err != nil {
		return err
	}
	if r.Name == "" {
		r.Name = p.Name
	}
	if r.Args == nil {
		r.Args = p.Args
	}
	return nil
}
