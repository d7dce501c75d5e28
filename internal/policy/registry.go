package policy

import "sort"

// mutatingToolAllowlist is the built-in set of tool names known to
// mutate host state independent of the policy flag, so a misconfigured
// policy cannot silently turn confirmation off for them. Kept
// intentionally small; other tools opt in through requires_confirm.
var mutatingToolAllowlist = map[string]bool{
	"blog_publish_static": true,
}

// IsAllowlistedMutating reports whether name is forced to
// requires_confirm=true regardless of its policy entry.
func IsAllowlistedMutating(name string) bool {
	return mutatingToolAllowlist[name]
}

// Registry is the immutable, read-only view of tool definitions produced
// by Load. It is safe for concurrent use: once published, nothing
// mutates it.
type Registry struct {
	tools map[string]ToolDefinition
	cfg   PolicyConfig
}

// NewRegistry builds a Registry directly from a tool set, bypassing the
// file-loading pipeline. Useful for tests and for callers assembling a
// registry from something other than a policy YAML file. Schemas are
// compiled here the same way Load compiles them; a schema that fails to
// compile is left uncached and rejected at validation time instead.
func NewRegistry(tools map[string]ToolDefinition) *Registry {
	cp := make(map[string]ToolDefinition, len(tools))
	for k, v := range tools {
		if v.compiled == nil {
			if compiled, err := compileArgsSchema(v.Name, v.ArgsSchema); err == nil {
				v.compiled = compiled
			}
		}
		cp[k] = v
	}
	return &Registry{tools: cp}
}

// Get returns the named tool definition and whether it exists.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Enumerate returns every registered ToolDefinition, sorted by name so
// list_tools responses are deterministic.
func (r *Registry) Enumerate() []ToolDefinition {
	names := r.Names()
	out := make([]ToolDefinition, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Config returns the global settings block of the base policy file.
// Zero-valued fields mean the file did not set them and the caller's
// own defaults apply.
func (r *Registry) Config() PolicyConfig {
	return r.cfg
}

// RequiresConfirmEffective reports whether a call to t must carry _confirm,
// combining the tool's own flag with the built-in allowlist.
func (t ToolDefinition) RequiresConfirmEffective() bool {
	return t.RequiresConfirm || IsAllowlistedMutating(t.Name)
}
