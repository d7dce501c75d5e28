package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestInitWithFileSink(t *testing.T) {
	dir := t.TempDir()
	log, err := Init(Options{Level: "debug", Dir: dir, ServerName: "test-server"})
	require.NoError(t, err)
	defer Close()

	log.Info().Str("k", "v").Msg("hello sink")

	data, err := os.ReadFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello sink")
	assert.Contains(t, string(data), `"server":"test-server"`)
}

func TestInitCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	_, err := Init(Options{Level: "info", Dir: dir})
	require.NoError(t, err)
	defer Close()

	_, err = os.Stat(filepath.Join(dir, "server.log"))
	assert.NoError(t, err)
}

func TestLBeforeInitIsUsable(t *testing.T) {
	// Must not panic or return a zero logger that discards fields.
	log := L()
	log.Debug().Msg("early startup")
}

func TestWithAddsComponentField(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(Options{Level: "debug", Dir: dir})
	require.NoError(t, err)
	defer Close()

	l := With("dispatcher")
	l.Info().Msg("tagged")

	data, err := os.ReadFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"dispatcher"`))
}

func TestCloseWithoutSink(t *testing.T) {
	_, err := Init(Options{Level: "info"})
	require.NoError(t, err)
	assert.NoError(t, Close())
}
