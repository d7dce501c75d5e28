// Package tool turns a (name, args) call into an Envelope, applying
// every safety gate in order: resolve, validate, guard paths, confirm,
// check features, execute, classify, audit, notify.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/audit"
	"burlymcp/internal/feature"
	"burlymcp/internal/notify"
	"burlymcp/internal/pathguard"
	"burlymcp/internal/policy"
	"burlymcp/pkg/envelope"
)

const defaultOutputCap = 10240

// Dispatcher owns every dependency a dispatch needs and has none of its
// own mutable state beyond what those dependencies manage themselves
// (the registry is immutable-after-publish; see internal/policy.Live).
type Dispatcher struct {
	Registry    *policy.Live
	Audit       audit.Logger
	Redactor    *audit.Redactor
	Notify      *notify.Manager
	Detector    *feature.Detector
	Handlers    map[string]Handler
	StageRoot   string
	PublishRoot string
	OutputCap   int
	DefaultTimeoutSec int
	// TimeoutOverrides and OutputOverrides carry the per-tool
	// TOOL_TIMEOUT_<NAME> / TOOL_OUTPUT_LIMIT_<NAME> environment
	// settings, keyed case-insensitively by tool name.
	TimeoutOverrides map[string]int
	OutputOverrides  map[string]int
	// AllowedExtensions is the global file-type restriction from the
	// policy config block, handed to handlers with each request.
	AllowedExtensions []string
	Log         zerolog.Logger
}

// New builds a Dispatcher with the builtin handler set merged under any
// caller-supplied overrides.
func New(reg *policy.Live, auditLogger audit.Logger, redactor *audit.Redactor, notifier *notify.Manager, detector *feature.Detector, stageRoot, publishRoot string, outputCap, defaultTimeoutSec int, log zerolog.Logger) *Dispatcher {
	handlers := make(map[string]Handler, len(builtinHandlers))
	for k, v := range builtinHandlers {
		handlers[k] = v
	}
	if outputCap <= 0 {
		outputCap = defaultOutputCap
	}
	if defaultTimeoutSec <= 0 {
		defaultTimeoutSec = 30
	}
	return &Dispatcher{
		Registry:          reg,
		Audit:             auditLogger,
		Redactor:          redactor,
		Notify:            notifier,
		Detector:          detector,
		Handlers:          handlers,
		StageRoot:         stageRoot,
		PublishRoot:       publishRoot,
		OutputCap:         outputCap,
		DefaultTimeoutSec: defaultTimeoutSec,
		Log:               log,
	}
}

// Execute runs the full pipeline for one call_tool invocation.
// caller identifies the requester for the audit trail (e.g. a remote
// address or "stdio").
func (d *Dispatcher) Execute(ctx context.Context, toolName string, args map[string]any, caller string) envelope.Envelope {
	start := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	// 1. Resolve.
	reg := d.Registry.Current()
	def, ok := reg.Get(toolName)
	if !ok {
		return envelope.Fail("Unknown tool", "", map[string]any{"available_tools": reg.Names()}, envelope.Metrics{ExitCode: 1, ElapsedMs: elapsedMs(start)})
	}

	// 2. Validate args, against the schema compiled at registry build.
	if err := def.ValidateArgs(args); err != nil {
		return envelope.Fail("Argument validation failed", err.Error(), nil, envelope.Metrics{ExitCode: 1, ElapsedMs: elapsedMs(start)})
	}

	// 3. Path guard.
	if env, violated := d.guardPaths(def, args, caller); violated {
		return withElapsed(env, start)
	}

	// 4. Confirmation gate.
	if def.RequiresConfirmEffective() && !confirmed(args) {
		env := envelope.NeedsConfirm(def.Name, "retry with _confirm: true", fmt.Sprintf(`{"name": %q, "args": {"_confirm": true}}`, def.Name))
		d.emitAudit(def, args, audit.StatusNeedConfirm, 1, elapsedMs(start), caller, 0, 0)
		d.Notify.ToolConfirmation(def.Name, env.Summary)
		return withElapsed(env, start)
	}

	// 5. Feature gate.
	if featureName, needed := requiredFeature(def.Name); needed {
		status := d.Detector.Get(featureName)
		if !status.Available {
			data := map[string]any{"feature": featureName, "suggestion": status.Suggestion}
			env := envelope.Fail("Feature unavailable: "+featureName, status.Error, data, envelope.Metrics{ExitCode: 1})
			return withElapsed(env, start)
		}
	}

	// 6. Execute.
	handler, ok := d.Handlers[def.Name]
	if !ok {
		handler = ShellHandler{}
	}
	timeoutSec := def.TimeoutSec
	if o, ok := lookupOverride(d.TimeoutOverrides, def.Name); ok && o > 0 {
		timeoutSec = o
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(d.DefaultTimeoutSec) * time.Second
	}
	outputCap := d.OutputCap
	if o, ok := lookupOverride(d.OutputOverrides, def.Name); ok && o > 0 {
		outputCap = o
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := handler.Handle(execCtx, Request{
		Tool:              def,
		Args:              args,
		StageRoot:         d.StageRoot,
		PublishRoot:       d.PublishRoot,
		OutputCap:         outputCap,
		Timeout:           timeout,
		AllowedExtensions: d.AllowedExtensions,
	})

	timedOut := errors.Is(execCtx.Err(), context.DeadlineExceeded)

	// 7. Classify outcome.
	var env envelope.Envelope
	switch {
	case err != nil && isPathEscape(err):
		d.recordSecurityViolation("path_traversal", caller, err.Error())
		env = envelope.Fail("Path traversal detected", err.Error(), nil, envelope.Metrics{ExitCode: 1})
	case timedOut:
		env = envelope.Fail(def.Name+" timed out", "", nil, envelope.Metrics{ExitCode: 124, ElapsedMs: elapsedMs(start)})
	case err != nil:
		env = envelope.Fail(classifyFailure(def.Name, err.Error()), err.Error(), nil, envelope.Metrics{ExitCode: 1})
	case !result.Success:
		summary := result.Summary
		if summary == "" {
			summary = classifyFailure(def.Name, result.Stderr)
		}
		env = envelope.Fail(summary, result.Stderr, result.Data, envelope.Metrics{
			ExitCode:    result.ExitCode,
			StdoutTrunc: result.StdoutTruncated,
			StderrTrunc: result.StderrTruncated,
		})
		env.Stdout, env.Stderr = result.Stdout, result.Stderr
	default:
		env = envelope.Ok(result.Summary, result.Data, result.Stdout, result.Stderr, envelope.Metrics{
			ExitCode:    result.ExitCode,
			StdoutTrunc: result.StdoutTruncated,
			StderrTrunc: result.StderrTruncated,
		})
	}
	env = withElapsed(env, start)

	// 8. Emit audit.
	status := audit.StatusOK
	if !env.OK {
		status = audit.StatusFail
	}
	d.emitAudit(def, args, status, env.Metrics.ExitCode, env.Metrics.ElapsedMs, caller, env.Metrics.StdoutTrunc, env.Metrics.StderrTrunc)

	// 9. Emit notification (never alters the envelope).
	if env.OK {
		if hasCategory(def.Notify, policy.NotifySuccess) {
			d.Notify.ToolSuccess(def.Name, env.Summary)
		}
	} else if hasCategory(def.Notify, policy.NotifyFailure) {
		d.Notify.ToolFailure(def.Name, env.Summary)
	}

	return env
}

// guardPaths applies the path-traversal guard to every schema-declared
// path argument, returning the rejection envelope and true if one escapes.
func (d *Dispatcher) guardPaths(def policy.ToolDefinition, args map[string]any, caller string) (envelope.Envelope, bool) {
	for _, pa := range declaredPathArgs(def.ArgsSchema) {
		root := d.StageRoot
		if pa.root == "publish" {
			root = d.PublishRoot
		}
		for _, raw := range pathValuesOf(args, pa.name) {
			if _, err := pathguard.Validate(raw, root, def.Name); err != nil {
				d.recordSecurityViolation("path_traversal", caller, err.Error())
				return envelope.Fail("Path traversal detected", err.Error(), nil, envelope.Metrics{ExitCode: 1}), true
			}
		}
	}
	return envelope.Envelope{}, false
}

func (d *Dispatcher) recordSecurityViolation(kind, caller, detail string) {
	_ = d.Audit.Append(audit.SecurityViolation(kind, caller))
	d.Notify.SecurityViolation(kind, detail)
}

func (d *Dispatcher) emitAudit(def policy.ToolDefinition, args map[string]any, status audit.Status, exitCode int, elapsed int64, caller string, stdoutTrunc, stderrTrunc int) {
	redacted := d.Redactor.Redact(args)
	rec := audit.Record{
		Timestamp:       time.Now(),
		Tool:            def.Name,
		ArgsHash:        audit.HashArgs(redacted),
		Mutates:         def.Mutates,
		RequiresConfirm: def.RequiresConfirmEffective(),
		Status:          status,
		ExitCode:        exitCode,
		ElapsedMs:       elapsed,
		Caller:          caller,
		StdoutTrunc:     stdoutTrunc,
		StderrTrunc:     stderrTrunc,
	}
	if err := d.Audit.Append(rec); err != nil {
		d.Log.Warn().Err(err).Str("tool", def.Name).Msg("audit append failed")
	}
}

// lookupOverride finds a per-tool override regardless of the case the
// environment variable suffix arrived in.
func lookupOverride(overrides map[string]int, toolName string) (int, bool) {
	if len(overrides) == 0 {
		return 0, false
	}
	for k, v := range overrides {
		if strings.EqualFold(k, toolName) {
			return v, true
		}
	}
	return 0, false
}

func hasCategory(cats []policy.NotifyCategory, want policy.NotifyCategory) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}

func isPathEscape(err error) bool {
	return errors.Is(err, pathguard.ErrEscapesRoot) || errors.Is(err, pathguard.ErrInvalidPath)
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func withElapsed(env envelope.Envelope, start time.Time) envelope.Envelope {
	env.Metrics.ElapsedMs = elapsedMs(start)
	return env
}
