package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"
)

type LauncherConfig struct {
	BindIP  string
	MinPort int
	MaxPort int
	Timeout time.Duration

	// Command builds the server child for the chosen address.
	Command     func(bindIP string, port int) *exec.Cmd
	OpenBrowser func(url string) error
	Out         io.Writer
}

// Launcher picks a port, starts the server child, opens a browser tab and
// supervises the child until it exits or the context is cancelled.
type Launcher struct {
	config LauncherConfig
}

func NewLauncher(config LauncherConfig) (*Launcher, error) {
	if config.Command == nil {
		return nil, errors.New("a server command is required")
	}
	if config.BindIP == "" {
		config.BindIP = DefaultBindIP
	}
	if config.MinPort == 0 && config.MaxPort == 0 {
		config.MinPort, config.MaxPort = DefaultMinPort, DefaultMaxPort
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultShutdownTimeout
	}
	if config.OpenBrowser == nil {
		config.OpenBrowser = OpenBrowser
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &Launcher{config: config}, nil
}

func (l *Launcher) Run(ctx context.Context) (State, error) {
	out := l.config.Out

	port, err := FindOpenPort(l.config.BindIP, l.config.MinPort, l.config.MaxPort)
	if err != nil {
		return StateExited, err
	}
	fmt.Fprintf(out, "Starting server on port %d...\n", port)

	proc, err := StartGroup(l.config.Command(l.config.BindIP, port))
	if err != nil {
		return StateExited, err
	}

	if err := l.config.OpenBrowser(BrowserURL(l.config.BindIP, port)); err != nil {
		color.New(color.FgYellow).Fprintf(out, "Warning: could not open browser: %v\n", err)
	}

	sup, err := NewSupervisor(SupervisorConfig{
		Process: proc,
		Timeout: l.config.Timeout,
		OnStateChange: func(s State) {
			switch s {
			case StateTerminating:
				fmt.Fprintln(out, "\nTerminating the server...")
			case StateKilled:
				color.New(color.FgRed).Fprintln(out, "Server didn't terminate gracefully, forcing shutdown...")
			}
		},
	})
	if err != nil {
		return StateExited, err
	}

	state, err := sup.Run(ctx)
	fmt.Fprintln(out, "Server stopped.")
	return state, err
}
