package mcp

import (
	"regexp"
	"strings"

	"burlymcp/pkg/envelope"
)

const maxErrorTextBytes = 200

// absPathPattern matches absolute filesystem paths inside error text.
// Conservative on purpose: a leading slash followed by at least one
// path segment, so lone "/" and URLs with schemes are left alone.
var absPathPattern = regexp.MustCompile(`(^|[\s"'=(:])(/[\w.\-]+(?:/[\w.\-]+)*/?)`)

// stackMarkers are the substrings that identify leaked stack traces or
// runtime dumps in error text.
var stackMarkers = []string{
	"goroutine ",
	"runtime error",
	"panic:",
	"Traceback",
	".go:",
}

// SanitizeText rewrites one error/summary string for the wire:
// stack-trace-looking text collapses entirely, absolute paths become
// [PATH], and anything longer than 200 bytes is truncated with an
// ellipsis. Runs on every envelope before it is written.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	for _, marker := range stackMarkers {
		if strings.Contains(s, marker) {
			return "Internal processing error"
		}
	}
	s = absPathPattern.ReplaceAllString(s, "${1}[PATH]")
	if len(s) > maxErrorTextBytes {
		s = s[:maxErrorTextBytes] + "..."
	}
	return s
}

// SanitizeEnvelope applies SanitizeText to every caller-visible text
// field of env.
func SanitizeEnvelope(env envelope.Envelope) envelope.Envelope {
	env.Summary = SanitizeText(env.Summary)
	env.Error = SanitizeText(env.Error)
	return env
}
