package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WithinRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := Validate("note.md", root, "blog_stage_markdown")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "note.md"), resolved)
}

func TestValidate_Escapes(t *testing.T) {
	root := t.TempDir()
	_, err := Validate("../../../etc/shadow", root, "blog_stage_markdown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscapesRoot)
}

func TestValidate_AbsoluteOutsideRoot(t *testing.T) {
	root := t.TempDir()
	_, err := Validate("/etc/passwd", root, "blog_stage_markdown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscapesRoot)
}

func TestValidate_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	_, err := Validate("escape/secret.txt", root, "blog_stage_markdown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscapesRoot)
}

func TestSanitize_StripsControlChars(t *testing.T) {
	cleaned, err := Sanitize("a\x00b\r\nc")
	require.NoError(t, err)
	assert.Equal(t, "abc", cleaned)
}

func TestSanitize_RejectsOverlong(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Sanitize(string(long))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("/a/b", "/a/b"))
	assert.True(t, Contains("/a/b", "/a/b/c"))
	assert.False(t, Contains("/a/b", "/a/bc"))
	assert.False(t, Contains("/a/b", "/a"))
}
