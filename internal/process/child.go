package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/giantswarm/k8sproject/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called twice.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNotStarted is returned by Wait when Start has not been called.
const ErrNotStarted = sentinel.Error("process not started")

// DefaultStopTimeout bounds Stop when no timeout is given.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is the maximum time to wait after SIGTERM before SIGKILL.
const termGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait on the done channel after SIGKILL.
const killDrainTimeout = 10 * time.Second

// Child is a command started with the caller's stdio and an extended
// environment. Child is not safe for concurrent Start calls; Stop and Wait
// may race with each other.
type Child struct {
	cmd     *exec.Cmd
	exited  chan struct{} // closed after waitErr is set
	waitErr error
	name    string
	log     *slog.Logger
}

// Stdio holds the streams the child inherits.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewChild prepares argv[0] with argv[1:] as arguments and env as the full
// environment. Panics if argv is empty.
func NewChild(argv, env []string, stdio Stdio, logger *slog.Logger) *Child {
	if len(argv) == 0 {
		panic("k8sproject: child command must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // the command is the user's test runner
	cmd.Env = env
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err
	configureSysProcAttr(cmd)

	return &Child{cmd: cmd, name: argv[0], log: logger}
}

// Start starts the command and the single goroutine waiting on it.
func (c *Child) Start() error {
	if c.exited != nil {
		return ErrAlreadyStarted
	}
	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.name, err)
	}
	c.log.Debug("started child", "command", c.name, "pid", c.cmd.Process.Pid)

	exited := make(chan struct{})
	c.exited = exited
	go func() {
		c.waitErr = c.cmd.Wait()
		close(exited)
	}()
	return nil
}

// Exited is closed once the command has exited. Nil before Start.
func (c *Child) Exited() <-chan struct{} {
	return c.exited
}

// Wait blocks until the command exits and returns its exit code. A non-zero
// exit is not an error; err is only set when the command could not be waited
// for.
func (c *Child) Wait() (int, error) {
	if c.exited == nil {
		return -1, ErrNotStarted
	}
	<-c.exited
	return ExitCode(c.waitErr)
}

// Stop sends SIGTERM, escalating to SIGKILL after a grace period, and waits
// at most timeout for the command to exit. Stopping an exited child is a
// no-op.
func (c *Child) Stop(timeout time.Duration) error {
	if c.exited == nil {
		return nil
	}
	select {
	case <-c.exited:
		return nil
	default:
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return c.drain(killDrainTimeout)
	}

	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		_ = c.cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case <-c.exited:
		return expectSignalExit(c.waitErr, c.name)
	case <-totalTimer.C:
		_ = c.cmd.Process.Kill()
		if err := c.drain(killDrainTimeout); err != nil {
			return fmt.Errorf("%s stop timeout: %w", c.name, err)
		}
		return nil
	}
}

func (c *Child) drain(timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-c.exited:
		return expectSignalExit(c.waitErr, c.name)
	case <-t.C:
		return fmt.Errorf("%s: timed out waiting for process to exit", c.name)
	}
}

// ExitCode maps a cmd.Wait error to a shell-style exit code: the exit status,
// or 128+signal for signaled processes.
func ExitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

// expectSignalExit treats exits caused by SIGTERM or SIGKILL as successful
// stops.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
		// The child decided its own exit status in response to SIGTERM.
		if exitErr.Exited() {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
