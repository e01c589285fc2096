//go:build !windows

package player

import (
	"os/exec"
	"syscall"
)

// detach starts mpv in its own process group with no standard pipes, so a
// terminal signal aimed at tandem does not cascade into the players.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
}

// kill terminates the whole process group.
func kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	return cmd.Process.Kill()
}
