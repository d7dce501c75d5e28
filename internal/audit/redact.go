package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// defaultSensitiveKeyMarkers are the case-folded substrings that mark an
// argument key as carrying a credential.
var defaultSensitiveKeyMarkers = []string{"password", "token", "secret", "key", "auth"}

// defaultSensitiveEnvNames is the baseline set of environment-variable
// names whose textual mention inside a string argument triggers
// redaction. Extended at construction time with any operator
// configured additions.
var defaultSensitiveEnvNames = []string{
	"PASSWORD", "TOKEN", "SECRET", "KEY", "AUTH", "API_KEY", "API_SECRET", "DATABASE_URL",
}

// Redactor walks an argument tree and replaces sensitive values before
// they are hashed or written to the audit log.
type Redactor struct {
	sensitiveEnvNames []string
}

// NewRedactor builds a Redactor whose env-var-reference detection
// additionally recognizes extraEnvNames beyond the built-in defaults.
func NewRedactor(extraEnvNames []string) *Redactor {
	names := append(append([]string{}, defaultSensitiveEnvNames...), extraEnvNames...)
	return &Redactor{sensitiveEnvNames: names}
}

// Redact recursively walks args and returns a redacted copy. It is
// idempotent: redacting an already-redacted object changes nothing.
func (r *Redactor) Redact(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = r.redactValue(k, v)
	}
	return out
}

func (r *Redactor) redactValue(key string, v any) any {
	if isSensitiveKey(key) {
		return "[REDACTED]"
	}
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, child := range vv {
			out[k] = r.redactValue(k, child)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, child := range vv {
			out[i] = r.redactValue(key, child)
		}
		return out
	case string:
		if r.referencesSensitiveEnvVar(vv) {
			return "[REDACTED_ENV_VAR]"
		}
		return vv
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range defaultSensitiveKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (r *Redactor) referencesSensitiveEnvVar(s string) bool {
	if s == "[REDACTED]" || s == "[REDACTED_ENV_VAR]" {
		return false
	}
	upper := strings.ToUpper(s)
	for _, name := range r.sensitiveEnvNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

// HashArgs canonicalizes args (sorted keys, no whitespace) and returns
// the hex-encoded SHA-256 of its UTF-8 encoding. Callers
// MUST pass already-redacted arguments.
func HashArgs(args map[string]any) string {
	canonical := canonicalizeJSON(args)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonicalizeJSON renders v as compact JSON with map keys sorted at
// every level, matching the "sorted keys, no whitespace" rule HashArgs
// documents.
func canonicalizeJSON(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			writeCanonical(b, vv[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, child := range vv {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, child)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(vv)
		b.Write(raw)
	}
}
