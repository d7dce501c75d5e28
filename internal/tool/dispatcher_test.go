package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/audit"
	"burlymcp/internal/feature"
	"burlymcp/internal/notify"
	"burlymcp/internal/policy"
	"burlymcp/pkg/envelope"
)

func newTestDispatcher(t *testing.T, tools map[string]policy.ToolDefinition) (*Dispatcher, string, string) {
	t.Helper()
	stageRoot := t.TempDir()
	publishRoot := t.TempDir()

	reg := policy.NewRegistry(tools)
	live := policy.NewLive(reg)
	detector := feature.NewDetector("", false, false, stageRoot, publishRoot, "")
	notifier := notify.NewManager(notify.Config{Enabled: false}, zerolog.Nop())
	auditLogger := audit.NopLogger{}
	redactor := audit.NewRedactor(nil)

	d := New(live, auditLogger, redactor, notifier, detector, stageRoot, publishRoot, 10240, 5, zerolog.Nop())
	return d, stageRoot, publishRoot
}

func TestExecuteUnknownTool(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[string]policy.ToolDefinition{})
	env := d.Execute(context.Background(), "does_not_exist", nil, "test")
	if env.OK {
		t.Fatal("expected failure")
	}
	if env.Summary != "Unknown tool" {
		t.Fatalf("summary = %q", env.Summary)
	}
	if env.Data["available_tools"] == nil {
		t.Fatal("expected available_tools in data")
	}
}

func TestExecuteArgumentValidationFailure(t *testing.T) {
	tools := map[string]policy.ToolDefinition{
		"blog_stage_markdown": {
			Name:       "blog_stage_markdown",
			Command:    []string{"noop"},
			TimeoutSec: 5,
			ArgsSchema: map[string]any{
				"type":     "object",
				"required": []any{"file_path"},
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "format": "path"},
				},
			},
		},
	}
	d, _, _ := newTestDispatcher(t, tools)
	env := d.Execute(context.Background(), "blog_stage_markdown", map[string]any{"file_path": 42}, "test")
	if env.OK {
		t.Fatal("expected failure")
	}
	if env.Summary != "Argument validation failed" {
		t.Fatalf("summary = %q", env.Summary)
	}
}

func TestExecutePathTraversal(t *testing.T) {
	tools := map[string]policy.ToolDefinition{
		"blog_stage_markdown": {
			Name:       "blog_stage_markdown",
			Command:    []string{"noop"},
			TimeoutSec: 5,
			ArgsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "format": "path"},
				},
			},
		},
	}
	d, _, _ := newTestDispatcher(t, tools)
	env := d.Execute(context.Background(), "blog_stage_markdown", map[string]any{"file_path": "../../../etc/shadow"}, "test")
	if env.OK {
		t.Fatal("expected failure")
	}
	if env.Summary != "Path traversal detected" {
		t.Fatalf("summary = %q", env.Summary)
	}
}

func TestExecuteConfirmationGate(t *testing.T) {
	tools := map[string]policy.ToolDefinition{
		"blog_publish_static": {
			Name:       "blog_publish_static",
			Command:    []string{"noop"},
			Mutates:    true,
			TimeoutSec: 5,
			ArgsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source_files": map[string]any{"type": "array"},
				},
			},
		},
	}
	d, stageRoot, publishRoot := newTestDispatcher(t, tools)

	env := d.Execute(context.Background(), "blog_publish_static", map[string]any{"source_files": []any{"a.md"}}, "test")
	if env.OK {
		t.Fatal("expected need_confirm, not success")
	}
	if env.NeedConfirm == nil || !*env.NeedConfirm {
		t.Fatal("expected need_confirm=true")
	}
	if env.Data["required_arg"] != "_confirm" {
		t.Fatalf("data = %#v", env.Data)
	}
	if entries, _ := os.ReadDir(publishRoot); len(entries) != 0 {
		t.Fatal("no side effects should occur without confirmation")
	}

	if err := os.WriteFile(filepath.Join(stageRoot, "a.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	env2 := d.Execute(context.Background(), "blog_publish_static", map[string]any{
		"source_files": []any{"a.md"},
		"_confirm":     true,
	}, "test")
	if !env2.OK {
		t.Fatalf("expected success after confirm, got %+v", env2)
	}
	if _, err := os.Stat(filepath.Join(publishRoot, "a.md")); err != nil {
		t.Fatalf("expected published file: %v", err)
	}
}

type sleepyHandler struct{}

func (sleepyHandler) Handle(ctx context.Context, req Request) (envelope.ToolResult, error) {
	select {
	case <-time.After(5 * time.Second):
		return envelope.ToolResult{Success: true}, nil
	case <-ctx.Done():
		return envelope.ToolResult{}, ctx.Err()
	}
}

func TestExecuteTimeout(t *testing.T) {
	tools := map[string]policy.ToolDefinition{
		"slow_tool": {
			Name:       "slow_tool",
			Command:    []string{"noop"},
			TimeoutSec: 1,
			ArgsSchema: map[string]any{"type": "object"},
		},
	}
	d, _, _ := newTestDispatcher(t, tools)
	d.Handlers["slow_tool"] = sleepyHandler{}

	start := time.Now()
	env := d.Execute(context.Background(), "slow_tool", map[string]any{}, "test")
	elapsed := time.Since(start)

	if env.OK {
		t.Fatal("expected timeout failure")
	}
	if env.Metrics.ExitCode != 124 {
		t.Fatalf("exit_code = %d, want 124", env.Metrics.ExitCode)
	}
	if elapsed < time.Second {
		t.Fatalf("elapsed = %v, expected at least the 1s timeout", elapsed)
	}
}
