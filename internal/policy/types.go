// Package policy loads, merges, and validates the declarative tool
// whitelist that governs every operation this server is willing to
// perform on behalf of a caller.
package policy

import (
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// toolNamePattern is the allowed shape of a ToolDefinition.Name and of a
// caller-supplied tool_name: letters, digits, underscore.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidToolName reports whether name matches the required tool-name shape
// and length bound.
func ValidToolName(name string) bool {
	return name != "" && len(name) <= 100 && toolNamePattern.MatchString(name)
}

// NotifyCategory is one of the event categories a tool may request
// notifications for.
type NotifyCategory string

const (
	NotifySuccess     NotifyCategory = "success"
	NotifyFailure     NotifyCategory = "failure"
	NotifyNeedConfirm NotifyCategory = "need_confirm"
)

// validNotifyCategories is the allowed set for ToolDefinition.Notify.
var validNotifyCategories = map[NotifyCategory]bool{
	NotifySuccess:     true,
	NotifyFailure:     true,
	NotifyNeedConfirm: true,
}

// ToolDefinition is a declarative record describing one callable
// operation. Command is opaque to the engine: it is interpreted by the
// handler registered for the tool (see internal/tool).
type ToolDefinition struct {
	Name            string           `yaml:"name" json:"name"`
	Description     string           `yaml:"description" json:"description"`
	ArgsSchema      map[string]any   `yaml:"args_schema" json:"args_schema"`
	Command         []string         `yaml:"command" json:"command"`
	Mutates         bool             `yaml:"mutates" json:"mutates"`
	RequiresConfirm bool             `yaml:"requires_confirm" json:"requires_confirm"`
	TimeoutSec      int              `yaml:"timeout_sec" json:"timeout_sec"`
	Notify          []NotifyCategory `yaml:"notify" json:"notify"`
	Enabled         *bool            `yaml:"enabled" json:"enabled"`

	// compiled is the ArgsSchema compiled once at registry-build time.
	// The registry is immutable after publish, so the cache is never
	// written again after Load/NewRegistry set it.
	compiled *jsonschema.Schema
}

// ValidateArgs checks a caller's argument object against the tool's
// declared schema, using the compilation cached at registry-build time.
// Definitions assembled by hand (no cache) fall back to compiling on
// the spot.
func (t ToolDefinition) ValidateArgs(args map[string]any) error {
	if t.ArgsSchema == nil {
		return nil
	}
	if t.compiled != nil {
		return validateCompiled(t.compiled, args)
	}
	return ValidateArgs(t.Name, args, t.ArgsSchema)
}

// IsEnabled reports whether the entry should reach the registry. A nil
// Enabled field defaults to true; only an explicit false drops it.
func (t ToolDefinition) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Validate checks the struct-level invariants: required fields,
// timeout bounds, and the notify set.
func (t ToolDefinition) Validate() error {
	if !ValidToolName(t.Name) {
		return &ToolInvalidError{Name: t.Name, Reason: "name must match ^[A-Za-z0-9_]+$ and be <= 100 bytes"}
	}
	if t.TimeoutSec <= 0 || t.TimeoutSec > 300 {
		return &ToolInvalidError{Name: t.Name, Reason: "timeout_sec must be in (0, 300]"}
	}
	for _, n := range t.Notify {
		if !validNotifyCategories[n] {
			return &ToolInvalidError{Name: t.Name, Reason: "notify contains unknown category: " + string(n)}
		}
	}
	if len(t.Command) == 0 {
		return &ToolInvalidError{Name: t.Name, Reason: "command must not be empty"}
	}
	return nil
}

// PolicyConfig holds the global settings resolved once at load time and
// never mutated thereafter.
type PolicyConfig struct {
	OutputTruncateLimit int
	DefaultTimeoutSec   int
	AuditLogPath        string
	StagingRoot         string
	PublishRoot         string
	AllowedExtensions   []string
}

// LoadSummary is the structured report emitted after a load.
type LoadSummary struct {
	ToolsFromFile       int `json:"tools_from_file"`
	OverlayFilesScanned int `json:"overlay_files_scanned"`
	OverlayTools        int `json:"overlay_tools"`
	Enabled             int `json:"enabled"`
	Disabled            int `json:"disabled"`
	Invalid             int `json:"invalid"`
}

// rawPolicyFile is the top-level shape of a policy YAML document.
type rawPolicyFile struct {
	PolicyVersion string           `yaml:"policy_version"`
	Config        *rawPolicyConfig `yaml:"config"`
	Tools         any              `yaml:"tools"`
}

// rawPolicyConfig is the optional global settings block of the base
// policy file. Only the base file's block is honored; overlay files
// contribute tools, not configuration.
type rawPolicyConfig struct {
	OutputTruncateLimit int      `yaml:"output_truncate_limit"`
	DefaultTimeoutSec   int      `yaml:"default_timeout_sec"`
	AuditLogPath        string   `yaml:"audit_log_path"`
	StagingRoot         string   `yaml:"staging_root"`
	PublishRoot         string   `yaml:"publish_root"`
	AllowedExtensions   []string `yaml:"allowed_extensions"`
}

func (r *rawPolicyConfig) toPolicyConfig() PolicyConfig {
	if r == nil {
		return PolicyConfig{}
	}
	return PolicyConfig{
		OutputTruncateLimit: r.OutputTruncateLimit,
		DefaultTimeoutSec:   r.DefaultTimeoutSec,
		AuditLogPath:        r.AuditLogPath,
		StagingRoot:         r.StagingRoot,
		PublishRoot:         r.PublishRoot,
		AllowedExtensions:   r.AllowedExtensions,
	}
}
