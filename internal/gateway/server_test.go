package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burlymcp/internal/config"
	"burlymcp/internal/feature"
	"burlymcp/internal/gateway/handlers"
	"burlymcp/internal/mcp"
	"burlymcp/internal/mcp/transport"
	"burlymcp/internal/notify"
	"burlymcp/internal/policy"
	"burlymcp/pkg/envelope"
)

type listDispatcher struct{}

func (listDispatcher) Execute(ctx context.Context, toolName string, args map[string]any, caller string) envelope.Envelope {
	return envelope.Ok("ran "+toolName, nil, "", "", envelope.Metrics{})
}

func newTestServer(t *testing.T, rateLimitDisabled bool) *Server {
	t.Helper()
	reg := policy.NewRegistry(map[string]policy.ToolDefinition{
		"disk_space": {Name: "disk_space", Description: "df", TimeoutSec: 5},
	})
	live := policy.NewLive(reg)
	engine := transport.InProcess{Engine: mcp.NewEngine(listDispatcher{}, live, "http", zerolog.Nop())}

	dir := t.TempDir()
	detector := feature.NewDetector(filepath.Join(dir, "none.sock"), false, false, dir, dir, filepath.Join(dir, "none.yaml"))
	notifier := notify.NewManager(notify.Config{Enabled: false}, zerolog.Nop())
	health := handlers.NewHealthHandler(engine, detector, notifier, "burlymcp", "0.1.0", true)

	cfg := &config.Config{Host: "127.0.0.1", Port: 0, RateLimitDisabled: rateLimitDisabled, RateLimitRPM: 60}
	return NewServer(cfg, engine, health, zerolog.Nop())
}

func TestServerRoutesHealth(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Shutdown(context.Background())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body handlers.HealthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestServerRoutesMCP(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"method":"call_tool","name":"disk_space","args":{}}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.OK)
	assert.Equal(t, "ran disk_space", env.Summary)
}

func TestServerMethodNotAllowedOnMCPGet(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Shutdown(context.Background())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServerRateLimitEnvelopeOnMCP(t *testing.T) {
	srv := newTestServer(t, false)
	defer srv.Shutdown(context.Background())

	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"method":"list_tools"}`))
		req.RemoteAddr = "10.1.1.1:9999"
		last = httptest.NewRecorder()
		srv.Handler().ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusOK, last.Code)
	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, "Rate limit exceeded", env.Summary)
}
