package devserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rh1/sitetools/internal/types"
)

const DefaultShutdownTimeout = 5 * time.Second

var _ types.Process = (*GroupProcess)(nil)

type State int

const (
	StateRunning State = iota
	StateTerminating
	StateExited
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type SupervisorConfig struct {
	Process types.Process
	// Timeout is how long a terminated process gets before it is killed.
	Timeout       time.Duration
	OnStateChange func(State)
}

// Supervisor waits on a child process and shuts it down in two phases
// when its context is cancelled.
type Supervisor struct {
	config SupervisorConfig

	mu    sync.Mutex
	state State
}

func NewSupervisor(config SupervisorConfig) (*Supervisor, error) {
	if config.Process == nil {
		return nil, errors.New("a process is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultShutdownTimeout
	}
	return &Supervisor{config: config, state: StateRunning}, nil
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
}

// Run blocks until the process exits. If ctx is cancelled first the process
// group gets SIGTERM, then SIGKILL once Timeout elapses. Run never returns
// before the process has actually exited. The returned error is the child's
// exit error for a natural exit, or a failed signal delivery.
func (s *Supervisor) Run(ctx context.Context) (State, error) {
	proc := s.config.Process
	s.setState(StateRunning)

	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	select {
	case err := <-done:
		s.setState(StateExited)
		return StateExited, err
	case <-ctx.Done():
	}

	s.setState(StateTerminating)
	// A failed SIGTERM usually means the process is already gone; the wait
	// below settles it either way.
	termErr := proc.Terminate()

	timer := time.NewTimer(s.config.Timeout)
	defer timer.Stop()

	select {
	case <-done:
		s.setState(StateExited)
		return StateExited, nil
	case <-timer.C:
	}

	s.setState(StateKilled)
	killErr := proc.Kill()
	<-done

	if killErr != nil {
		return StateKilled, fmt.Errorf("failed to kill process %d: %w", proc.Pid(), errors.Join(killErr, termErr))
	}
	return StateKilled, nil
}
