//go:build !windows
// +build !windows

package procmgr

import (
	"os/exec"
	"syscall"
	"time"
)

// killGrace is how long the group has to exit after SIGTERM before it is
// sent SIGKILL.
const killGrace = 500 * time.Millisecond

// configureProcessGroup places cmd in its own session/process group so
// the whole tree can be signaled together on timeout.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGTERM to the process group, then SIGKILL if
// it doesn't exit quickly.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid := -cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)
	go func() {
		time.Sleep(killGrace)
		_ = syscall.Kill(pgid, syscall.SIGKILL)
	}()
}
