package tool

// pathArgRoot is one schema-declared path argument and the root it must
// resolve within.
type pathArgRoot struct {
	name string
	root string // "stage" or "publish"
}

// declaredPathArgs inspects a tool's args_schema for the convention a
// path-bearing property uses: {"format": "path", "x-root": "stage" |
// "publish"}. x-root defaults to "stage" when omitted, since staging is
// the common case and publishing is reached only through
// blog_publish_static's explicit "publish" marking.
func declaredPathArgs(schema map[string]any) []pathArgRoot {
	if schema == nil {
		return nil
	}
	props, _ := schema["properties"].(map[string]any)
	var out []pathArgRoot
	for name, raw := range props {
		propSchema, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		format, _ := propSchema["format"].(string)
		if format != "path" {
			continue
		}
		root, _ := propSchema["x-root"].(string)
		if root != "publish" {
			root = "stage"
		}
		out = append(out, pathArgRoot{name: name, root: root})
	}
	return out
}

// pathValuesOf extracts the string path candidates for one declared
// argument, covering both a single string and an array of strings.
func pathValuesOf(args map[string]any, name string) []string {
	v, ok := args[name]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
