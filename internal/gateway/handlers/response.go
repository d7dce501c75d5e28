// Package handlers holds the HTTP bridge's endpoint handlers: /health
// and /mcp, plus the envelope-writing helpers they share.
package handlers

import (
	"encoding/json"
	"net/http"

	"burlymcp/pkg/envelope"
)

// WriteJSON writes any body as application/json with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteEnvelope writes env as the /mcp response body. The status is
// always 200: errors live inside the envelope, never on the HTTP
// status line.
func WriteEnvelope(w http.ResponseWriter, env envelope.Envelope) {
	WriteJSON(w, http.StatusOK, env)
}

// identifiedEnvelope is an envelope with the caller's advisory id
// copied onto the outer body when the request carried one.
type identifiedEnvelope struct {
	ID any `json:"id,omitempty"`
	envelope.Envelope
}

// WriteEnvelopeWithID writes env, echoing the advisory request id onto
// the body when present. The envelope contract itself never depends on
// the id.
func WriteEnvelopeWithID(w http.ResponseWriter, id any, env envelope.Envelope) {
	if id == nil {
		WriteEnvelope(w, env)
		return
	}
	WriteJSON(w, http.StatusOK, identifiedEnvelope{ID: id, Envelope: env})
}

// GuardFailure builds the envelope returned when a pre-dispatch guard
// rejects a request: ok=false with a hint at the fix in
// data.suggestion.
func GuardFailure(summary, detail, suggestion string) envelope.Envelope {
	return envelope.Fail(summary, detail, map[string]any{"suggestion": suggestion}, envelope.Metrics{ExitCode: 1})
}
