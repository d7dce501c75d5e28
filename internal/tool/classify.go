package tool

import "strings"

// stderrPattern is one entry of the curated classification table, checked in order; the first match wins.
type stderrPattern struct {
	contains string
	summary  string
}

// classificationTable is an ordered list of substring rules; the first
// match wins. It is deliberately a table, not a parser.
var classificationTable = []stderrPattern{
	{"permission denied", "Permission denied"},
	{"command not found", "Command not found"},
	{"no such file or directory", "Command not found"},
	{"cannot connect to the docker daemon", "Daemon unreachable"},
	{"connection refused", "Daemon unreachable"},
	{"no space left on device", "Disk full"},
}

// classifyFailure returns the curated summary for stderr, or the generic
// fallback when nothing in the table matches.
func classifyFailure(toolName, stderr string) string {
	lower := strings.ToLower(stderr)
	for _, p := range classificationTable {
		if strings.Contains(lower, p.contains) {
			return p.summary
		}
	}
	return toolName + " failed"
}
