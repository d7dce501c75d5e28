package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"burlymcp/internal/feature"
	"burlymcp/internal/mcp"
	"burlymcp/internal/mcp/transport"
	"burlymcp/internal/notify"
)

// healthCacheTTL bounds how stale a /health answer may be.
const healthCacheTTL = 30 * time.Second

// healthProbeTimeout bounds the list_tools probe behind one health
// check so a wedged engine degrades the status instead of hanging it.
const healthProbeTimeout = 5 * time.Second

// HealthBody is the /health response.
type HealthBody struct {
	Status               string `json:"status"`
	ServerName           string `json:"server_name"`
	Version              string `json:"version"`
	ToolsAvailable       int    `json:"tools_available"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	DockerAvailable      bool   `json:"docker_available"`
	StrictSecurityMode   bool   `json:"strict_security_mode"`
	PolicyLoaded         bool   `json:"policy_loaded"`
	UptimeSeconds        int64  `json:"uptime_seconds"`
}

// HealthHandler answers GET /health, always with status 200: a broken
// engine shows up in the body's status field, never on the status line.
type HealthHandler struct {
	Engine       transport.Caller
	Detector     *feature.Detector
	Notify       *notify.Manager
	ServerName   string
	Version      string
	PolicyLoaded bool

	start    time.Time
	mu       sync.Mutex
	cached   HealthBody
	cachedAt time.Time
}

// NewHealthHandler builds the handler and starts the uptime clock.
func NewHealthHandler(engine transport.Caller, detector *feature.Detector, notifier *notify.Manager, serverName, version string, policyLoaded bool) *HealthHandler {
	return &HealthHandler{
		Engine:       engine,
		Detector:     detector,
		Notify:       notifier,
		ServerName:   serverName,
		Version:      version,
		PolicyLoaded: policyLoaded,
		start:        time.Now(),
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.body(r.Context()))
}

func (h *HealthHandler) body(ctx context.Context) HealthBody {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.cachedAt.IsZero() && time.Since(h.cachedAt) < healthCacheTTL {
		body := h.cached
		body.UptimeSeconds = int64(time.Since(h.start).Seconds())
		return body
	}

	engineOK, toolCount := h.probeEngine(ctx)

	status := "error"
	switch {
	case engineOK && h.PolicyLoaded:
		status = "ok"
	case engineOK || h.PolicyLoaded:
		status = "degraded"
	}

	body := HealthBody{
		Status:               status,
		ServerName:           h.ServerName,
		Version:              h.Version,
		ToolsAvailable:       toolCount,
		NotificationsEnabled: h.Notify.GetStatus().Enabled,
		DockerAvailable:      h.Detector.Get("docker").Available,
		StrictSecurityMode:   true,
		PolicyLoaded:         h.PolicyLoaded,
		UptimeSeconds:        int64(time.Since(h.start).Seconds()),
	}

	h.cached = body
	h.cachedAt = time.Now()
	return body
}

// probeEngine asks the engine for its tool list within a bounded time.
func (h *HealthHandler) probeEngine(ctx context.Context) (bool, int) {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	env := h.Engine.Call(probeCtx, mcp.Request{Method: mcp.MethodListTools})
	if !env.OK {
		return false, 0
	}
	if tools, ok := env.Data["tools"].([]map[string]any); ok {
		return true, len(tools)
	}
	// A subprocess engine's data round-trips through JSON, so the list
	// arrives as []any instead.
	if generic, ok := env.Data["tools"].([]any); ok {
		return true, len(generic)
	}
	return true, 0
}
