package tool

import "strings"

// truthy reports whether v coerces to true under the confirmation gate's
// accepted spellings: true, "true", "1", "yes", "y", or the
// integer 1.
func truthy(v any) bool {
	switch vv := v.(type) {
	case bool:
		return vv
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "true", "1", "yes", "y":
			return true
		}
		return false
	case int:
		return vv == 1
	case int64:
		return vv == 1
	case float64:
		return vv == 1
	default:
		return false
	}
}

// confirmed reports whether args carries a truthy _confirm.
func confirmed(args map[string]any) bool {
	if args == nil {
		return false
	}
	v, ok := args["_confirm"]
	if !ok {
		return false
	}
	return truthy(v)
}
