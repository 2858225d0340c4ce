//go:build linux

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureSysProcAttr makes the kernel send SIGTERM to the child when
// k8sproject dies, so a killed run does not leave the test command behind.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}

// Alive reports whether a process with the given pid exists. EPERM means
// the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
