//go:build windows
// +build windows

package procmgr

import (
	"os/exec"
)

// configureProcessGroup is a no-op on Windows: there is no POSIX process
// group to join, so timeout handling falls back to killing the direct
// child only.
func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the child process directly. Windows has no
// SIGTERM equivalent reachable from os/exec, so there is no graceful
// step before the hard kill.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
