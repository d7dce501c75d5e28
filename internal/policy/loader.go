package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"burlymcp/internal/pathguard"
)

const (
	maxPolicyFileBytes = 1 << 20 // 1 MiB
	defaultPolicyDir   = "/config/policy"
)

// supportedPolicyVersions is the range of policy_version values this
// server understands. A policy file may omit policy_version entirely,
// which is treated as compatible (pre-versioning policies).
var supportedPolicyVersions = mustConstraint("< 3.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Source describes where to load the policy from: a canonical base file
// plus an optional overlay directory.
type Source struct {
	File         string
	OverlayDir   string
	EnvFileOverride string // the literal value of POLICY_FILE, if the caller set it
}

// Load implements the full pipeline: canonicalize, size-check,
// parse, overlay-merge, validate, and return an immutable Registry.
func Load(src Source) (*Registry, LoadSummary, error) {
	var summary LoadSummary

	canonicalFile, err := canonicalizePolicyPath(src.File, src.EnvFileOverride)
	if err != nil {
		return nil, summary, err
	}

	baseTools, baseMeta, err := readPolicyFile(canonicalFile)
	if err != nil {
		return nil, summary, fmt.Errorf("policy: base file %s: %w", canonicalFile, err)
	}
	if err := checkVersion(baseMeta.PolicyVersion); err != nil {
		return nil, summary, err
	}
	summary.ToolsFromFile = len(baseTools)

	merged := map[string]ToolDefinition{}
	for _, t := range baseTools {
		merged[t.Name] = t
	}

	if src.OverlayDir != "" {
		entries, globErr := overlayFiles(src.OverlayDir)
		if globErr == nil {
			summary.OverlayFilesScanned = len(entries)
			for _, path := range entries {
				tools, _, err := readPolicyFile(path)
				if err != nil {
					// Overlay files that fail to parse are skipped individually;
					// only the base file parsing is fatal. No warning is logged
					// for a skipped file; it still counts in OverlayFilesScanned.
					continue
				}
				for _, t := range tools {
					merged[t.Name] = t
					summary.OverlayTools++
				}
			}
		}
	}

	reg := &Registry{tools: map[string]ToolDefinition{}, cfg: baseMeta.Config.toPolicyConfig()}
	for name, t := range merged {
		if !t.IsEnabled() {
			summary.Disabled++
			continue
		}
		if err := t.Validate(); err != nil {
			summary.Invalid++
			return nil, summary, err
		}
		if err := ValidateSchema(t.ArgsSchema); err != nil {
			summary.Invalid++
			return nil, summary, fmt.Errorf("policy: tool %q: %w", name, err)
		}
		compiled, err := compileArgsSchema(t.Name, t.ArgsSchema)
		if err != nil {
			summary.Invalid++
			return nil, summary, fmt.Errorf("policy: tool %q: %w", name, err)
		}
		t.compiled = compiled
		reg.tools[name] = t
		summary.Enabled++
	}

	return reg, summary, nil
}

// canonicalizePolicyPath resolves the base policy file to an absolute,
// symlink-resolved path and rejects it if it escapes the allowed roots:
// the process working directory, the directory of an explicit
// POLICY_FILE override, and the hard-coded default policy directory.
func canonicalizePolicyPath(file, envOverride string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPolicyPathEscapesRoot, err)
	}
	resolved := abs
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = real
	}

	roots := []string{defaultPolicyDir}
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}
	if envOverride != "" {
		if d, err := filepath.Abs(filepath.Dir(envOverride)); err == nil {
			roots = append(roots, d)
		}
	}

	for _, root := range roots {
		if pathguard.Contains(root, resolved) {
			return resolved, nil
		}
	}
	return "", ErrPolicyPathEscapesRoot
}

func readPolicyFile(path string) ([]ToolDefinition, rawPolicyFile, error) {
	var raw rawPolicyFile
	info, err := os.Stat(path)
	if err != nil {
		return nil, raw, err
	}
	if info.Size() > maxPolicyFileBytes {
		return nil, raw, ErrPolicyFileTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, raw, err
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, raw, fmt.Errorf("yaml parse: %w", err)
	}

	tools, err := extractTools(raw.Tools)
	if err != nil {
		return nil, raw, err
	}
	return tools, raw, nil
}

// extractTools accepts the two allowed shapes: a mapping of
// name to tool, or a list of {name, ...} objects.
func extractTools(raw any) ([]ToolDefinition, error) {
	if raw == nil {
		return nil, nil
	}

	reencode := func(v any) (ToolDefinition, error) {
		var t ToolDefinition
		b, err := yaml.Marshal(v)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(b, &t); err != nil {
			return t, err
		}
		return t, nil
	}

	switch v := raw.(type) {
	case map[string]any:
		out := make([]ToolDefinition, 0, len(v))
		for name, def := range v {
			t, err := reencode(def)
			if err != nil {
				return nil, err
			}
			if t.Name == "" {
				t.Name = name
			}
			out = append(out, t)
		}
		return out, nil
	case []any:
		out := make([]ToolDefinition, 0, len(v))
		for _, def := range v {
			t, err := reencode(def)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	default:
		return nil, ErrPolicyToolsShape
	}
}

// overlayFiles enumerates *.yaml within dir in lexicographic order.
func overlayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPolicyVersionUnsupported, v)
	}
	if !supportedPolicyVersions.Check(sv) {
		return fmt.Errorf("%w: %s", ErrPolicyVersionUnsupported, v)
	}
	return nil
}
