// Package envelope defines the uniform response shape every tool
// invocation and protocol-level error renders into, shared by the
// dispatcher, the MCP engine, and the HTTP bridge.
package envelope

// Metrics carries the timing and process-exit facts of one invocation.
type Metrics struct {
	ElapsedMs   int64 `json:"elapsed_ms"`
	ExitCode    int   `json:"exit_code"`
	StdoutTrunc int   `json:"stdout_trunc"`
	StderrTrunc int   `json:"stderr_trunc"`
}

// Envelope is the single response shape returned on every path: success,
// classified failure, confirmation gate, and protocol-level error alike.
type Envelope struct {
	OK          bool           `json:"ok"`
	Summary     string         `json:"summary"`
	NeedConfirm *bool          `json:"need_confirm"`
	Data        map[string]any `json:"data,omitempty"`
	Stdout      string         `json:"stdout,omitempty"`
	Stderr      string         `json:"stderr,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metrics     Metrics        `json:"metrics"`
}

// Bool returns a pointer to b. NeedConfirm is always populated
// (non-nil) on call_tool responses so the field is never ambiguous
// between "false" and "omitted" on the wire.
func Bool(b bool) *bool {
	return &b
}

// Ok builds a successful envelope. needConfirm is always explicit.
func Ok(summary string, data map[string]any, stdout, stderr string, metrics Metrics) Envelope {
	return Envelope{
		OK:          true,
		Summary:     summary,
		NeedConfirm: Bool(false),
		Data:        data,
		Stdout:      stdout,
		Stderr:      stderr,
		Metrics:     metrics,
	}
}

// Fail builds a failed envelope. errText is the caller-facing detail;
// it is the caller's responsibility to have already sanitized it.
func Fail(summary, errText string, data map[string]any, metrics Metrics) Envelope {
	return Envelope{
		OK:          false,
		Summary:     summary,
		NeedConfirm: Bool(false),
		Data:        data,
		Error:       errText,
		Metrics:     metrics,
	}
}

// NeedsConfirm builds the confirmation-gate envelope:
// ok=false, need_confirm=true, no side effects occurred.
func NeedsConfirm(tool string, suggestion, example string) Envelope {
	return Envelope{
		OK:          false,
		Summary:     "Confirmation required for " + tool,
		NeedConfirm: Bool(true),
		Data: map[string]any{
			"tool":           tool,
			"required_arg":   "_confirm",
			"required_value": true,
			"suggestion":     suggestion,
			"example":        example,
		},
		Metrics: Metrics{ExitCode: 1},
	}
}

// ToolResult is what a handler returns to the dispatcher before it is
// folded into an Envelope plus an audit/notify outcome.
type ToolResult struct {
	Success         bool
	NeedConfirm     bool
	Summary         string
	Data            map[string]any
	Stdout, Stderr  string
	ExitCode        int
	ElapsedMs       int64
	StdoutTruncated int
	StderrTruncated int
}
