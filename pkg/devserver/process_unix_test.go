//go:build unix

package devserver

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// startReady starts script in its own group and waits for it to print
// "ready", so signal dispositions are installed before the test proceeds.
func startReady(t *testing.T, script string) *GroupProcess {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)

	proc, err := StartGroup(cmd)
	require.NoError(t, err)
	t.Cleanup(func() { proc.Kill() })

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ready", strings.TrimSpace(line))
	return proc
}

func TestGroupProcess_OwnProcessGroup(t *testing.T) {
	proc := startReady(t, `echo ready; exec sleep 30`)

	pgid, err := unix.Getpgid(proc.Pid())
	require.NoError(t, err)
	assert.Equal(t, proc.Pid(), pgid)
	assert.NotEqual(t, unix.Getpgrp(), pgid)

	sup, err := NewSupervisor(SupervisorConfig{Process: proc, Timeout: 2 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := sup.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, StateExited, state)
}

func TestGroupProcess_ForcedKill(t *testing.T) {
	proc := startReady(t, `trap "" TERM; echo ready; exec sleep 30`)

	sup, err := NewSupervisor(SupervisorConfig{Process: proc, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	state, err := sup.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, StateKilled, state)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLauncher_Run(t *testing.T) {
	var out bytes.Buffer
	var opened string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := NewLauncher(LauncherConfig{
		BindIP:  "127.0.0.1",
		Timeout: time.Second,
		Command: func(bindIP string, port int) *exec.Cmd {
			return exec.Command("sleep", "30")
		},
		OpenBrowser: func(url string) error {
			opened = url
			cancel()
			return nil
		},
		Out: &out,
	})
	require.NoError(t, err)

	state, err := l.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, StateExited, state)
	assert.True(t, strings.HasPrefix(opened, "http://localhost:"))

	output := out.String()
	assert.Contains(t, output, "Starting server on port ")
	assert.Contains(t, output, "\nTerminating the server...\n")
	assert.NotContains(t, output, "forcing shutdown")
	assert.True(t, strings.HasSuffix(output, "Server stopped.\n"))
}

func TestLauncher_StartFailure(t *testing.T) {
	var out bytes.Buffer
	l, err := NewLauncher(LauncherConfig{
		Command: func(string, int) *exec.Cmd {
			return exec.Command("/nonexistent/server-binary")
		},
		OpenBrowser: func(string) error { return nil },
		Out:         &out,
	})
	require.NoError(t, err)

	_, err = l.Run(context.Background())
	assert.Error(t, err)
}

func TestNewLauncher_Defaults(t *testing.T) {
	_, err := NewLauncher(LauncherConfig{})
	assert.Error(t, err)

	l, err := NewLauncher(LauncherConfig{Command: func(string, int) *exec.Cmd { return nil }})
	require.NoError(t, err)
	assert.Equal(t, DefaultBindIP, l.config.BindIP)
	assert.Equal(t, DefaultMinPort, l.config.MinPort)
	assert.Equal(t, DefaultMaxPort, l.config.MaxPort)
	assert.Equal(t, DefaultShutdownTimeout, l.config.Timeout)
}
