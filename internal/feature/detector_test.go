package feature

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_PolicyAvailable(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("tools: {}\n"), 0o644))

	d := NewDetector("", true, true, dir, dir, policy)
	s := d.Get("policy")
	assert.True(t, s.Available)
}

func TestDetector_PolicyMissing(t *testing.T) {
	d := NewDetector("", true, true, "", "", "/nonexistent/tools.yaml")
	s := d.Get("policy")
	assert.False(t, s.Available)
	assert.NotEmpty(t, s.Suggestion)
}

func TestDetector_DockerMissing(t *testing.T) {
	d := NewDetector("/nonexistent/docker.sock", true, true, "", "", "")
	s := d.Get("docker")
	assert.False(t, s.Available)
	assert.Equal(t, "Docker socket not found", s.Error)
}

func TestDetector_BlogDirectories(t *testing.T) {
	stage := t.TempDir()
	publish := t.TempDir()
	d := NewDetector("", true, true, stage, publish, "")
	s := d.Get("blog_directories")
	assert.True(t, s.Available)
}

func TestDetector_CachesWithinTTL(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("tools: {}\n"), 0o644))

	d := NewDetector("", true, true, dir, dir, policy)
	first := d.Get("policy")
	// Removing the file after the first probe should not affect the
	// cached result until the TTL elapses.
	require.NoError(t, os.Remove(policy))
	second := d.Get("policy")
	assert.Equal(t, first, second)
	_ = time.Second
}

func TestDetector_UnknownFeature(t *testing.T) {
	d := NewDetector("", true, true, "", "", "")
	s := d.Get("nope")
	assert.False(t, s.Available)
}
