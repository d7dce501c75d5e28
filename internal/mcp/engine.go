package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/policy"
	"burlymcp/pkg/envelope"
)

// Dispatcher is the engine's view of the tool dispatcher.
type Dispatcher interface {
	Execute(ctx context.Context, toolName string, args map[string]any, caller string) envelope.Envelope
}

// Engine reads framed JSON requests, invokes the dispatcher, and writes
// framed JSON responses. One engine instance serves one stream, one
// request in flight at a time; responses come back in request order.
type Engine struct {
	dispatcher Dispatcher
	registry   *policy.Live
	limiter    *SlidingWindow
	caller     string
	log        zerolog.Logger
}

// NewEngine builds an engine bound to a dispatcher and a registry
// snapshot source. caller identifies this stream in audit records
// (e.g. "stdio" or a remote address).
func NewEngine(dispatcher Dispatcher, registry *policy.Live, caller string, log zerolog.Logger) *Engine {
	return &Engine{
		dispatcher: dispatcher,
		registry:   registry,
		limiter:    NewSlidingWindow(60, time.Minute),
		caller:     caller,
		log:        log,
	}
}

// Serve runs the read-dispatch-write loop until EOF on r or ctx is
// canceled. Empty lines are ignored. Per-request failures of any kind
// produce an envelope and the loop continues; only stream-level errors
// end it.
func (e *Engine) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		env := e.Handle(ctx, line)
		if err := writeEnvelope(out, env); err != nil {
			return fmt.Errorf("mcp: write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			// The line never fit in a frame; answer once and stop, the
			// stream position is unrecoverable.
			env := envelope.Fail("Request parsing failed", "request line exceeds 1 MiB", nil, envelope.Metrics{ExitCode: 1})
			_ = writeEnvelope(out, SanitizeEnvelope(env))
			return nil
		}
		return fmt.Errorf("mcp: read request: %w", err)
	}
	return nil
}

// Handle answers one framed request line with a sanitized envelope.
// Panics inside dispatch are caught here so a broken handler cannot
// take the loop down.
func (e *Engine) Handle(ctx context.Context, line []byte) (env envelope.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().Interface("panic", rec).Msg("request handling panicked")
			env = SanitizeEnvelope(envelope.Fail("Internal server error", "", nil, envelope.Metrics{ExitCode: 1}))
		}
	}()

	if len(line) > MaxLineBytes {
		return SanitizeEnvelope(envelope.Fail("Request parsing failed", "request line exceeds 1 MiB", nil, envelope.Metrics{ExitCode: 1}))
	}

	if !e.limiter.Allow() {
		return SanitizeEnvelope(envelope.Fail("Rate limit exceeded", "", nil, envelope.Metrics{ExitCode: 1}))
	}

	req, err := DecodeRequest(line)
	if err != nil {
		return SanitizeEnvelope(envelope.Fail("Request parsing failed", err.Error(), nil, envelope.Metrics{ExitCode: 1}))
	}

	return SanitizeEnvelope(e.HandleRequest(ctx, req))
}

// HandleRequest dispatches an already-decoded request. The HTTP bridge
// calls this directly in its in-process transport mode; Handle and the
// stdio loop share it.
func (e *Engine) HandleRequest(ctx context.Context, req Request) envelope.Envelope {
	switch req.Method {
	case MethodListTools:
		return e.listTools()
	case MethodCallTool:
		if req.Name == "" {
			return envelope.Fail("Missing tool name", "call_tool requires a name field", nil, envelope.Metrics{ExitCode: 1})
		}
		return e.dispatcher.Execute(ctx, req.Name, req.Args, e.caller)
	default:
		return envelope.Fail("Method not supported", fmt.Sprintf("method %q is not one of list_tools, call_tool", req.Method), nil, envelope.Metrics{ExitCode: 1})
	}
}

// DecodeRequest parses one request line, enforcing the structural
// complexity bounds on the whole document before the typed decode.
func DecodeRequest(line []byte) (Request, error) {
	var raw any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Request{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Request{}, fmt.Errorf("request must be a JSON object")
	}
	if err := CheckComplexity(raw); err != nil {
		return Request{}, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("invalid request shape: %w", err)
	}
	if err := req.normalize(); err != nil {
		return Request{}, fmt.Errorf("invalid params: %w", err)
	}
	return req, nil
}

// listTools renders the registry as the list_tools response: every tool
// with its name, description, and an inputSchema in the standard
// {type, properties, required, additionalProperties} form.
func (e *Engine) listTools() envelope.Envelope {
	defs := e.registry.Current().Enumerate()
	tools := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": inputSchemaOf(def.ArgsSchema),
		})
	}
	return envelope.Ok(fmt.Sprintf("%d tools available", len(tools)), map[string]any{"tools": tools}, "", "", envelope.Metrics{})
}

// inputSchemaOf normalizes a tool's declared args_schema into the
// inputSchema shape, defaulting the parts a sparse schema omits.
func inputSchemaOf(schema map[string]any) map[string]any {
	out := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []any{},
		"additionalProperties": false,
	}
	if schema == nil {
		return out
	}
	if t, ok := schema["type"].(string); ok && t != "" {
		out["type"] = t
	}
	if p, ok := schema["properties"]; ok {
		out["properties"] = p
	}
	if r, ok := schema["required"]; ok {
		out["required"] = r
	}
	if ap, ok := schema["additionalProperties"]; ok {
		out["additionalProperties"] = ap
	}
	return out
}

func writeEnvelope(out *bufio.Writer, env envelope.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}
	return out.Flush()
}
