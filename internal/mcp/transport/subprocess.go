package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/mcp"
	"burlymcp/internal/procmgr"
	"burlymcp/pkg/envelope"
)

// defaultEngineTimeout is the bridge-side hard bound on one engine
// subprocess, enforced in addition to the per-tool timeout.
const defaultEngineTimeout = 60 * time.Second

// sensitiveEnvMarkers mirrors the dispatcher's subprocess hygiene: a
// spawned engine never inherits credential-bearing variables or host
// control sockets it does not need.
var sensitiveEnvMarkers = []string{"PASSWORD", "TOKEN", "SECRET", "KEY", "AUTH", "DOCKER_HOST"}

// Subprocess reaches the engine by spawning one short-lived process per
// request that speaks the newline-framed protocol on its stdio. The
// child is placed in its own process group so a timeout can kill
// everything it spawned in turn.
type Subprocess struct {
	// Command is the engine argv, e.g. ["burlyd", "stdio"].
	Command []string
	// Timeout bounds the whole child; zero means the 60 s default.
	Timeout time.Duration
	// KeepEnv lists variable names passed through verbatim even when the
	// sensitive-marker filter would drop them (e.g. POLICY_FILE paths
	// containing "KEY" in a directory name never match, but a deployment
	// can be explicit).
	KeepEnv []string

	Log zerolog.Logger
}

// Call spawns the engine, writes req as one frame on its stdin, and
// parses the first stdout line as the response envelope. Every failure
// mode is folded into an envelope; Call never returns an error.
func (s Subprocess) Call(ctx context.Context, req mcp.Request) envelope.Envelope {
	line, err := json.Marshal(req)
	if err != nil {
		return envelope.Fail("Request parsing failed", err.Error(), nil, envelope.Metrics{ExitCode: 1})
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}

	result, err := procmgr.Run(ctx, procmgr.Spec{
		Command:   s.Command,
		Env:       s.sanitizedEnviron(),
		Stdin:     append(line, '\n'),
		Timeout:   timeout,
		OutputCap: mcp.MaxLineBytes,
	})
	if err != nil {
		s.Log.Error().Err(err).Strs("command", s.Command).Msg("engine subprocess failed to run")
		return envelope.Fail("Internal server error", "", nil, envelope.Metrics{ExitCode: 1})
	}
	if result.TimedOut {
		return envelope.Fail("MCP engine timeout", "", nil, envelope.Metrics{ExitCode: 124, ElapsedMs: result.ElapsedMs})
	}

	env, ok := firstEnvelopeLine(result.Stdout)
	if !ok {
		s.Log.Error().Int("exit_code", result.ExitCode).Str("stderr", result.Stderr).Msg("engine subprocess produced no envelope")
		return envelope.Fail("Internal server error", "", nil, envelope.Metrics{ExitCode: 1, ElapsedMs: result.ElapsedMs})
	}
	return env
}

// firstEnvelopeLine scans the child's stdout for the first line that
// parses as an envelope, skipping anything a misbehaving child printed
// before it.
func firstEnvelopeLine(stdout string) (envelope.Envelope, bool) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 64*1024), mcp.MaxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if _, hasOK := probe["ok"]; !hasOK {
			continue
		}
		if _, hasMetrics := probe["metrics"]; !hasMetrics {
			continue
		}
		var env envelope.Envelope
		if err := json.Unmarshal(line, &env); err == nil {
			return env, true
		}
	}
	return envelope.Envelope{}, false
}

func (s Subprocess) sanitizedEnviron() []string {
	keep := make(map[string]bool, len(s.KeepEnv))
	for _, k := range s.KeepEnv {
		keep[k] = true
	}
	full := os.Environ()
	out := make([]string, 0, len(full))
	for _, kv := range full {
		name, _, _ := strings.Cut(kv, "=")
		if keep[name] {
			out = append(out, kv)
			continue
		}
		upper := strings.ToUpper(name)
		sensitive := false
		for _, marker := range sensitiveEnvMarkers {
			if strings.Contains(upper, marker) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			out = append(out, kv)
		}
	}
	return out
}
