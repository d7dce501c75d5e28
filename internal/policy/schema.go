package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Anti-DoS bounds applied to a schema document at load time, and to
// caller arguments as defense-in-depth.
const (
	MaxSchemaDepth      = 20
	MaxObjectProperties = 100
	MaxArrayItems       = 50
	MaxTotalNodes       = 1000
)

// SchemaInvalid is the diagnostic returned by ValidateSchema and
// ValidateArgs for a constraint violation.
type SchemaInvalid struct {
	FieldPath string
	Kind      string
	Detail    string
}

func (s *SchemaInvalid) Error() string {
	path := s.FieldPath
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf("%s: %s (%s)", path, s.Detail, s.Kind)
}

// ValidateSchema rejects a declared args_schema that exceeds the
// structural bounds before it is ever compiled or used to validate a
// caller's arguments.
func ValidateSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	nodes := 0
	if err := walkBounds(schema, 1, &nodes); err != nil {
		return &SchemaInvalid{FieldPath: "root", Kind: "complexity", Detail: err.Error()}
	}
	return nil
}

func walkBounds(node any, depth int, nodes *int) error {
	*nodes++
	if *nodes > MaxTotalNodes {
		return fmt.Errorf("schema exceeds %d total nodes", MaxTotalNodes)
	}
	if depth > MaxSchemaDepth {
		return fmt.Errorf("schema exceeds max depth %d", MaxSchemaDepth)
	}
	switch v := node.(type) {
	case map[string]any:
		if props, ok := v["properties"].(map[string]any); ok && len(props) > MaxObjectProperties {
			return fmt.Errorf("schema object exceeds %d properties", MaxObjectProperties)
		}
		for _, child := range v {
			if err := walkBounds(child, depth+1, nodes); err != nil {
				return err
			}
		}
	case []any:
		if len(v) > MaxArrayItems {
			return fmt.Errorf("schema array exceeds %d items", MaxArrayItems)
		}
		for _, child := range v {
			if err := walkBounds(child, depth+1, nodes); err != nil {
				return err
			}
		}
	}
	return nil
}

// compileArgsSchema compiles a declared args_schema once (draft
// 2020-12 semantics, via santhosh-tekuri/jsonschema/v6). The result is
// cached on the ToolDefinition at registry-build time so dispatch
// never recompiles per call. A nil schema compiles to nil, meaning
// "accept anything".
func compileArgsSchema(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	resourceName := "policy://" + toolName
	var schemaDoc any = schema
	if err := compiler.AddResource(resourceName, schemaDoc); err != nil {
		return nil, &SchemaInvalid{FieldPath: "root", Kind: "schema_error", Detail: err.Error()}
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, &SchemaInvalid{FieldPath: "root", Kind: "schema_error", Detail: err.Error()}
	}
	return compiled, nil
}

// validateCompiled checks args against an already-compiled schema,
// after re-applying the structural bounds to args themselves as
// defense-in-depth.
func validateCompiled(compiled *jsonschema.Schema, args map[string]any) error {
	nodes := 0
	if err := walkBounds(args, 1, &nodes); err != nil {
		return &SchemaInvalid{FieldPath: "root", Kind: "complexity", Detail: err.Error()}
	}
	if compiled == nil {
		return nil
	}

	// Round-trip args through JSON so numeric types match what a real
	// JSON request body would have produced (float64 for all numbers).
	var argsDoc any = args
	if raw, err := json.Marshal(args); err == nil {
		_ = json.Unmarshal(raw, &argsDoc)
	}

	if err := compiled.Validate(argsDoc); err != nil {
		return translateValidationError(err)
	}
	return nil
}

// ValidateArgs is the compile-per-call path for callers holding a bare
// schema document rather than a registry-built ToolDefinition. Tools
// that came through Load or NewRegistry validate through
// ToolDefinition.ValidateArgs, which reuses the cached compilation.
func ValidateArgs(toolName string, args map[string]any, schema map[string]any) error {
	if schema == nil {
		return nil
	}
	compiled, err := compileArgsSchema(toolName, schema)
	if err != nil {
		return err
	}
	return validateCompiled(compiled, args)
}

// translateValidationError converts the library's nested
// *jsonschema.ValidationError tree into a single-sentence SchemaInvalid
// naming the first offending field path.
func translateValidationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &SchemaInvalid{FieldPath: "root", Kind: "invalid", Detail: err.Error()}
	}
	leaf := deepestCause(ve)
	path := strings.Join(instanceLocation(leaf), ".")
	return &SchemaInvalid{
		FieldPath: path,
		Kind:      "constraint_violation",
		Detail:    leaf.Error(),
	}
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return ve
	}
	// Prefer the cause with the longest instance location: it names the
	// most specific field.
	best := ve
	bestLen := len(ve.InstanceLocation)
	for _, c := range ve.Causes {
		d := deepestCause(c)
		if len(d.InstanceLocation) >= bestLen {
			best = d
			bestLen = len(d.InstanceLocation)
		}
	}
	return best
}

func instanceLocation(ve *jsonschema.ValidationError) []string {
	return ve.InstanceLocation
}
