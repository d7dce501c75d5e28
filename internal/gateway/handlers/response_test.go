package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burlymcp/pkg/envelope"
)

func TestWriteEnvelopeAlways200(t *testing.T) {
	w := httptest.NewRecorder()
	WriteEnvelope(w, envelope.Fail("Unknown tool", "", nil, envelope.Metrics{ExitCode: 1}))

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, "Unknown tool", decoded["summary"])
}

func TestWriteEnvelopeWithIDPlacesIDFirstClass(t *testing.T) {
	w := httptest.NewRecorder()
	WriteEnvelopeWithID(w, "abc", envelope.Ok("done", nil, "", "", envelope.Metrics{}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "abc", decoded["id"])
	assert.Equal(t, true, decoded["ok"])
}

func TestGuardFailureCarriesSuggestion(t *testing.T) {
	env := GuardFailure("Method not supported", "", "use list_tools or call_tool")
	assert.False(t, env.OK)
	assert.Equal(t, "use list_tools or call_tool", env.Data["suggestion"])
	assert.Equal(t, 1, env.Metrics.ExitCode)
}
