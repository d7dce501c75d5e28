package tool

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"burlymcp/internal/procmgr"
	"burlymcp/pkg/envelope"
)

// sensitiveEnvMarkers is the credential-name set, reapplied here to
// strip known-sensitive variables from a subprocess's environment before
// it is spawned.
var sensitiveEnvMarkers = []string{"PASSWORD", "TOKEN", "SECRET", "KEY", "AUTH", "DOCKER_HOST"}

// ShellHandler runs a tool's declared Command as a subprocess.
// Command tokens of the
// form "${name}" are substituted with the string form of args[name].
// Arguments with no matching placeholder are not passed to the command
// in any form.
type ShellHandler struct{}

func (ShellHandler) Handle(ctx context.Context, req Request) (envelope.ToolResult, error) {
	if len(req.Tool.Command) == 0 {
		return envelope.ToolResult{}, fmt.Errorf("tool %s: no command declared", req.Tool.Name)
	}

	command := substitutePlaceholders(req.Tool.Command, req.Args)

	result, err := procmgr.Run(ctx, procmgr.Spec{
		Command:   command,
		Env:       sanitizedEnviron(),
		Timeout:   req.Timeout,
		OutputCap: req.OutputCap,
	})
	if err != nil {
		return envelope.ToolResult{}, err
	}

	return envelope.ToolResult{
		Success:         result.ExitCode == 0 && !result.TimedOut,
		Summary:         "",
		Stdout:          result.Stdout,
		Stderr:          result.Stderr,
		ExitCode:        result.ExitCode,
		ElapsedMs:       result.ElapsedMs,
		StdoutTruncated: result.StdoutTruncated,
		StderrTruncated: result.StderrTruncated,
	}, nil
}

func substitutePlaceholders(command []string, args map[string]any) []string {
	out := make([]string, 0, len(command))
	for _, tok := range command {
		replaced := tok
		for k, v := range args {
			if k == "_confirm" {
				continue
			}
			placeholder := "${" + k + "}"
			if strings.Contains(replaced, placeholder) {
				replaced = strings.ReplaceAll(replaced, placeholder, stringify(v))
			}
		}
		out = append(out, replaced)
	}
	return out
}

func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// sanitizedEnviron returns the current process environment with any
// variable whose name contains a sensitive marker removed.
func sanitizedEnviron() []string {
	full := os.Environ()
	out := make([]string, 0, len(full))
	for _, kv := range full {
		name, _, _ := strings.Cut(kv, "=")
		if isSensitiveEnvName(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isSensitiveEnvName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range sensitiveEnvMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
