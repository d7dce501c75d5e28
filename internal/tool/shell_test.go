package tool

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burlymcp/internal/policy"
)

func TestSubstitutePlaceholders(t *testing.T) {
	command := []string{"docker", "logs", "--tail", "${lines}", "${container}"}
	args := map[string]any{"lines": float64(50), "container": "web", "_confirm": true}

	got := substitutePlaceholders(command, args)
	assert.Equal(t, []string{"docker", "logs", "--tail", "50", "web"}, got)
}

func TestSubstitutePlaceholdersIgnoresConfirm(t *testing.T) {
	command := []string{"echo", "${_confirm}"}
	got := substitutePlaceholders(command, map[string]any{"_confirm": true})
	assert.Equal(t, []string{"echo", "${_confirm}"}, got)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "text", stringify("text"))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, "3", stringify(float64(3)))
	assert.Equal(t, "2.5", stringify(float64(2.5)))
}

func TestIsSensitiveEnvName(t *testing.T) {
	assert.True(t, isSensitiveEnvName("GOTIFY_TOKEN"))
	assert.True(t, isSensitiveEnvName("db_password"))
	assert.True(t, isSensitiveEnvName("DOCKER_HOST"))
	assert.False(t, isSensitiveEnvName("HOME"))
	assert.False(t, isSensitiveEnvName("PATH"))
}

func TestShellHandlerRunsDeclaredCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test drives a POSIX shell")
	}
	req := Request{
		Tool: policy.ToolDefinition{
			Name:    "echo_tool",
			Command: []string{"sh", "-c", "echo ${word}"},
		},
		Args:      map[string]any{"word": "hi"},
		OutputCap: 10240,
		Timeout:   10 * time.Second,
	}

	res, err := ShellHandler{}.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hi\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

func TestShellHandlerNoCommand(t *testing.T) {
	req := Request{Tool: policy.ToolDefinition{Name: "empty"}}
	_, err := ShellHandler{}.Handle(context.Background(), req)
	assert.Error(t, err)
}
