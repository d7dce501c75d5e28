package transport

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burlymcp/internal/mcp"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test script requires a POSIX shell")
	}
}

func TestSubprocessCallParsesEnvelopeLine(t *testing.T) {
	requireUnix(t)
	sp := Subprocess{
		Command: []string{"sh", "-c", `cat >/dev/null; echo '{"ok":true,"summary":"ran","need_confirm":false,"metrics":{"elapsed_ms":1,"exit_code":0,"stdout_trunc":0,"stderr_trunc":0}}'`},
		Timeout: 10 * time.Second,
		Log:     zerolog.Nop(),
	}

	env := sp.Call(context.Background(), mcp.Request{Method: mcp.MethodListTools})
	assert.True(t, env.OK)
	assert.Equal(t, "ran", env.Summary)
}

func TestSubprocessSkipsNoiseBeforeEnvelope(t *testing.T) {
	requireUnix(t)
	sp := Subprocess{
		Command: []string{"sh", "-c", `cat >/dev/null; echo 'starting up'; echo '{"unrelated":1}'; echo '{"ok":false,"summary":"Unknown tool","metrics":{"elapsed_ms":0,"exit_code":1}}'`},
		Timeout: 10 * time.Second,
		Log:     zerolog.Nop(),
	}

	env := sp.Call(context.Background(), mcp.Request{Method: mcp.MethodCallTool, Name: "x"})
	assert.False(t, env.OK)
	assert.Equal(t, "Unknown tool", env.Summary)
}

func TestSubprocessTimeout(t *testing.T) {
	requireUnix(t)
	sp := Subprocess{
		Command: []string{"sh", "-c", "sleep 30"},
		Timeout: 500 * time.Millisecond,
		Log:     zerolog.Nop(),
	}

	start := time.Now()
	env := sp.Call(context.Background(), mcp.Request{Method: mcp.MethodListTools})
	assert.False(t, env.OK)
	assert.Equal(t, "MCP engine timeout", env.Summary)
	assert.Equal(t, 124, env.Metrics.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSubprocessNoEnvelopeIsInternalError(t *testing.T) {
	requireUnix(t)
	sp := Subprocess{
		Command: []string{"sh", "-c", "cat >/dev/null; exit 3"},
		Timeout: 10 * time.Second,
		Log:     zerolog.Nop(),
	}

	env := sp.Call(context.Background(), mcp.Request{Method: mcp.MethodListTools})
	assert.False(t, env.OK)
	assert.Equal(t, "Internal server error", env.Summary)
}

func TestSanitizedEnvironDropsCredentials(t *testing.T) {
	t.Setenv("MY_API_TOKEN", "hunter2")
	t.Setenv("HARMLESS_VALUE", "ok")

	sp := Subprocess{}
	env := sp.sanitizedEnviron()

	joined := ""
	for _, kv := range env {
		joined += kv + "\n"
	}
	assert.NotContains(t, joined, "MY_API_TOKEN")
	assert.Contains(t, joined, "HARMLESS_VALUE=ok")
}

func TestSanitizedEnvironKeepList(t *testing.T) {
	t.Setenv("POLICY_AUTH_DIR", "/config")

	sp := Subprocess{KeepEnv: []string{"POLICY_AUTH_DIR"}}
	env := sp.sanitizedEnviron()

	found := false
	for _, kv := range env {
		if kv == "POLICY_AUTH_DIR=/config" {
			found = true
		}
	}
	require.True(t, found)
}
