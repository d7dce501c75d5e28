// Package transport gives the HTTP bridge its two ways of reaching the
// MCP engine: an in-process function call, or a per-request subprocess
// speaking the newline-framed protocol on its stdio. The bridge's HTTP
// contract is identical across both.
package transport

import (
	"context"

	"burlymcp/internal/mcp"
	"burlymcp/pkg/envelope"
)

// Caller sends one decoded request to an engine and returns its
// envelope. Implementations must never return a protocol-level error
// for per-request failures; those are encoded in the envelope.
type Caller interface {
	Call(ctx context.Context, req mcp.Request) envelope.Envelope
}

// InProcess adapts an *mcp.Engine to the Caller interface with a plain
// function call, the default transport.
type InProcess struct {
	Engine *mcp.Engine
}

func (p InProcess) Call(ctx context.Context, req mcp.Request) envelope.Envelope {
	return p.Engine.HandleRequest(ctx, req)
}
