package procmgr

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive a POSIX shell")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requirePOSIX(t)
	res, err := Run(context.Background(), Spec{
		Command:   []string{"sh", "-c", "echo out; echo err >&2; exit 3"},
		Timeout:   10 * time.Second,
		OutputCap: 10240,
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Zero(t, res.StdoutTruncated)
}

func TestRunFeedsStdin(t *testing.T) {
	requirePOSIX(t)
	res, err := Run(context.Background(), Spec{
		Command:   []string{"cat"},
		Stdin:     []byte("hello\n"),
		Timeout:   10 * time.Second,
		OutputCap: 10240,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunTruncatesAtCapKeepingFirstBytes(t *testing.T) {
	requirePOSIX(t)
	res, err := Run(context.Background(), Spec{
		Command:   []string{"sh", "-c", "printf '%0.sA' $(seq 1 100)"},
		Timeout:   10 * time.Second,
		OutputCap: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("A", 10), res.Stdout)
	assert.Equal(t, 90, res.StdoutTruncated)
}

func TestRunTimeoutKillsGroup(t *testing.T) {
	requirePOSIX(t)
	start := time.Now()
	res, err := Run(context.Background(), Spec{
		Command:   []string{"sh", "-c", "sleep 30"},
		Timeout:   300 * time.Millisecond,
		OutputCap: 1024,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 124, res.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := Run(context.Background(), Spec{})
	assert.Error(t, err)
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Spec{
		Command: []string{"definitely-not-a-real-binary-xyz"},
		Timeout: time.Second,
	})
	assert.Error(t, err)
}
