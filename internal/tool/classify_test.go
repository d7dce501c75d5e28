package tool

import "testing"

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		stderr string
		want   string
	}{
		{"bash: foo: command not found", "Command not found"},
		{"Permission denied", "Permission denied"},
		{"Cannot connect to the Docker daemon at unix:///var/run/docker.sock", "Daemon unreachable"},
		{"something totally unexpected", "mytool failed"},
	}
	for _, c := range cases {
		if got := classifyFailure("mytool", c.stderr); got != c.want {
			t.Errorf("classifyFailure(%q) = %q, want %q", c.stderr, got, c.want)
		}
	}
}
