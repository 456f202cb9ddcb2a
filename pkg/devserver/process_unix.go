//go:build unix

package devserver

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// GroupProcess is a child started as the leader of its own process group.
// Signals go to the whole group so grandchildren are stopped too.
type GroupProcess struct {
	cmd *exec.Cmd
}

// StartGroup starts cmd in a new process group. The child does not receive
// the terminal's interrupt; the parent forwards termination explicitly.
func StartGroup(cmd *exec.Cmd) (*GroupProcess, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	return &GroupProcess{cmd: cmd}, nil
}

func (p *GroupProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *GroupProcess) Terminate() error {
	return p.signalGroup(unix.SIGTERM)
}

func (p *GroupProcess) Kill() error {
	return p.signalGroup(unix.SIGKILL)
}

func (p *GroupProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *GroupProcess) signalGroup(sig unix.Signal) error {
	pgid, err := unix.Getpgid(p.Pid())
	if err != nil {
		return fmt.Errorf("failed to get process group of %d: %w", p.Pid(), err)
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		return fmt.Errorf("failed to send %s to group %d: %w", unix.SignalName(sig), pgid, err)
	}
	return nil
}
