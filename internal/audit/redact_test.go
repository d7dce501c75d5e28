package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact_SensitiveKey(t *testing.T) {
	r := NewRedactor(nil)
	out := r.Redact(map[string]any{
		"password": "hunter2",
		"api_key":  "abc123",
		"note":     "hello",
	})
	assert.Equal(t, "[REDACTED]", out["password"])
	assert.Equal(t, "[REDACTED]", out["api_key"])
	assert.Equal(t, "hello", out["note"])
}

func TestRedact_EnvVarReference(t *testing.T) {
	r := NewRedactor(nil)
	out := r.Redact(map[string]any{
		"command": "echo $DATABASE_URL",
	})
	assert.Equal(t, "[REDACTED_ENV_VAR]", out["command"])
}

func TestRedact_Nested(t *testing.T) {
	r := NewRedactor(nil)
	out := r.Redact(map[string]any{
		"env": map[string]any{
			"TOKEN": "abc",
			"HOME":  "/root",
		},
	})
	env := out["env"].(map[string]any)
	assert.Equal(t, "[REDACTED]", env["TOKEN"])
	assert.Equal(t, "/root", env["HOME"])
}

func TestRedact_Idempotent(t *testing.T) {
	r := NewRedactor(nil)
	once := r.Redact(map[string]any{"secret": "xyz", "msg": "uses $TOKEN here"})
	twice := r.Redact(once)
	assert.Equal(t, once, twice)
}

func TestHashArgs_Deterministic(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	bMap := map[string]any{"a": 1, "b": 2}
	assert.Equal(t, HashArgs(a), HashArgs(bMap))
}

func TestHashArgs_DifferentArgsDifferentHash(t *testing.T) {
	assert.NotEqual(t, HashArgs(map[string]any{"a": 1}), HashArgs(map[string]any{"a": 2}))
}
