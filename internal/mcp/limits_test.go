package mcp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckComplexityAcceptsReasonableArgs(t *testing.T) {
	args := map[string]any{
		"file_path": "posts/hello.md",
		"options":   map[string]any{"force": true, "depth": 3.0},
		"tags":      []any{"a", "b", "c"},
	}
	assert.NoError(t, CheckComplexity(args))
}

func TestCheckComplexityDepth(t *testing.T) {
	v := any("leaf")
	for i := 0; i < 25; i++ {
		v = map[string]any{"child": v}
	}
	err := CheckComplexity(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooComplex)
	assert.Contains(t, err.Error(), "depth")
}

func TestCheckComplexityMapKeys(t *testing.T) {
	wide := map[string]any{}
	for i := 0; i < 101; i++ {
		wide[fmt.Sprintf("k%d", i)] = i
	}
	err := CheckComplexity(wide)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keys")
}

func TestCheckComplexityArrayItems(t *testing.T) {
	long := make([]any, 51)
	err := CheckComplexity(long)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entries")
}

func TestCheckComplexityTotalNodes(t *testing.T) {
	// 40 arrays of 30 scalars each: every bound individually fine, 1200+
	// nodes in total.
	outer := map[string]any{}
	for i := 0; i < 40; i++ {
		inner := make([]any, 30)
		for j := range inner {
			inner[j] = j
		}
		outer[fmt.Sprintf("arr%d", i)] = inner
	}
	err := CheckComplexity(outer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes")
}
