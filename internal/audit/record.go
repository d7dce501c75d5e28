// Package audit implements the append-only audit log: every tool
// invocation and security event is recorded as one redacted, hashed
// JSON line.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal classification of an audited invocation.
type Status string

const (
	StatusOK                Status = "ok"
	StatusFail              Status = "fail"
	StatusNeedConfirm        Status = "need_confirm"
	StatusSecurityViolation Status = "security_violation"
)

// Record is one line of the audit log. ID correlates the record with
// server-side log lines for the same invocation.
type Record struct {
	ID              string    `json:"id,omitempty"`
	Timestamp       time.Time `json:"ts"`
	Tool            string    `json:"tool"`
	ArgsHash        string    `json:"args_hash"`
	Mutates         bool      `json:"mutates"`
	RequiresConfirm bool      `json:"requires_confirm"`
	Status          Status    `json:"status"`
	ExitCode        int       `json:"exit_code"`
	ElapsedMs       int64     `json:"elapsed_ms"`
	Caller          string    `json:"caller"`
	StdoutTrunc     int       `json:"stdout_trunc"`
	StderrTrunc     int       `json:"stderr_trunc"`
}

// SecurityViolation builds a violation record: tool is forced to
// SECURITY_VIOLATION and the violation kind is hashed into args_hash
// the same way ordinary arguments are.
func SecurityViolation(kind, caller string) Record {
	return Record{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Tool:      "SECURITY_VIOLATION",
		Status:    StatusSecurityViolation,
		Caller:    caller,
		ArgsHash:  HashArgs(map[string]any{"kind": kind}),
	}
}
