//go:build !unix

package devserver

import (
	"fmt"
	"os"
	"os/exec"
)

// GroupProcess falls back to signalling the child alone where process
// groups are not available.
type GroupProcess struct {
	cmd *exec.Cmd
}

func StartGroup(cmd *exec.Cmd) (*GroupProcess, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	return &GroupProcess{cmd: cmd}, nil
}

func (p *GroupProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *GroupProcess) Terminate() error {
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

func (p *GroupProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *GroupProcess) Wait() error {
	return p.cmd.Wait()
}
