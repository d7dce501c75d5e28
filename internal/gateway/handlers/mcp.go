package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/mcp"
	"burlymcp/internal/mcp/transport"
	"burlymcp/internal/policy"
)

// maxRequestBodyBytes bounds a /mcp request body.
const maxRequestBodyBytes = 10240

// engineCallTimeout is the bridge-side bound on one engine call,
// enforced in addition to the per-tool timeout.
const engineCallTimeout = 60 * time.Second

// MCPHandler adapts HTTP to the MCP engine: it normalizes the two
// accepted request shapes, applies the pre-dispatch guards, forwards to
// the engine, and always answers 200 with a JSON envelope.
type MCPHandler struct {
	Engine  transport.Caller
	Timeout time.Duration
	Log     zerolog.Logger
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		WriteEnvelope(w, GuardFailure("Request validation failed", "", "resend the request with a readable body"))
		return
	}
	if len(body) > maxRequestBodyBytes {
		WriteEnvelope(w, GuardFailure("Request validation failed", "",
			"keep request bodies at or under 10240 bytes"))
		return
	}

	req, err := mcp.DecodeRequest(body)
	if err != nil {
		if errors.Is(err, mcp.ErrTooComplex) {
			WriteEnvelope(w, GuardFailure("Request validation failed", mcp.SanitizeText(err.Error()),
				"reduce the nesting depth and size of the args object"))
			return
		}
		WriteEnvelope(w, GuardFailure("Request parsing failed", mcp.SanitizeText(err.Error()),
			`send a JSON object like {"method": "call_tool", "name": "...", "args": {}}`))
		return
	}

	switch req.Method {
	case mcp.MethodListTools, mcp.MethodCallTool:
	default:
		WriteEnvelopeWithID(w, req.ID, GuardFailure("Method not supported", "",
			"use one of list_tools, call_tool"))
		return
	}

	if req.Method == mcp.MethodCallTool {
		if req.Name == "" {
			WriteEnvelopeWithID(w, req.ID, GuardFailure("Missing tool name", "",
				"include a name field, or wrap it as params.name"))
			return
		}
		if !policy.ValidToolName(req.Name) {
			WriteEnvelopeWithID(w, req.ID, GuardFailure("Request validation failed", "",
				"tool names contain only letters, digits, and underscores, up to 100 bytes"))
			return
		}
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = engineCallTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	env := h.Engine.Call(ctx, req)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !env.OK && env.Metrics.ExitCode != 124 {
		env = GuardFailure("Request timeout", "", "retry, or call a tool with a shorter timeout")
	}

	WriteEnvelopeWithID(w, req.ID, mcp.SanitizeEnvelope(env))
}

// SanitizeUpstreamError rewrites an upstream failure message before it
// can reach a client; the full detail belongs in the server-side log
// only.
func SanitizeUpstreamError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "valid"):
		return "Request validation failed"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "Request timeout"
	default:
		return "An unexpected error occurred"
	}
}
