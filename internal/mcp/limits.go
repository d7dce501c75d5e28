package mcp

import (
	"errors"
	"fmt"
)

// Per-request bounds. The same complexity bounds are reapplied by
// the HTTP bridge to caller arguments as defense in depth.
const (
	MaxLineBytes  = 1 << 20 // one framed request line
	MaxDepth      = 20
	MaxMapKeys    = 100
	MaxArrayItems = 50
	MaxNodes      = 1000
)

// ErrTooComplex marks a request or argument object that violates the
// structural bounds.
var ErrTooComplex = errors.New("mcp: request exceeds complexity bounds")

// CheckComplexity walks a decoded JSON value and enforces the depth,
// key-count, array-length, and total-node bounds. The walk is
// pre-order and stops at the first violation.
func CheckComplexity(v any) error {
	nodes := 0
	return walkComplexity(v, 1, &nodes)
}

func walkComplexity(v any, depth int, nodes *int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting depth exceeds %d", ErrTooComplex, MaxDepth)
	}
	*nodes++
	if *nodes > MaxNodes {
		return fmt.Errorf("%w: more than %d total nodes", ErrTooComplex, MaxNodes)
	}
	switch vv := v.(type) {
	case map[string]any:
		if len(vv) > MaxMapKeys {
			return fmt.Errorf("%w: object has %d keys, limit %d", ErrTooComplex, len(vv), MaxMapKeys)
		}
		for _, child := range vv {
			if err := walkComplexity(child, depth+1, nodes); err != nil {
				return err
			}
		}
	case []any:
		if len(vv) > MaxArrayItems {
			return fmt.Errorf("%w: array has %d entries, limit %d", ErrTooComplex, len(vv), MaxArrayItems)
		}
		for _, child := range vv {
			if err := walkComplexity(child, depth+1, nodes); err != nil {
				return err
			}
		}
	}
	return nil
}
