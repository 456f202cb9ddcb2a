package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/rh1/sitetools/pkg/devserver"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve(os.Args[2:])
		return
	}

	os.Exit(launch(os.Args[1:]))
}

type launchOptions struct {
	bindIP  string
	dir     string
	minPort int
	maxPort int
	timeout time.Duration
	noOpen  bool
}

func parseLaunchFlags(args []string) (launchOptions, error) {
	var opts launchOptions

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.StringVar(&opts.bindIP, "bind", envOr("BIND_IP", devserver.DefaultBindIP), "Address to bind the server to")
	fs.StringVar(&opts.dir, "dir", ".", "Directory to serve")
	fs.IntVar(&opts.minPort, "min-port", devserver.DefaultMinPort, "First port to try")
	fs.IntVar(&opts.maxPort, "max-port", devserver.DefaultMaxPort, "Port range end (exclusive)")
	fs.DurationVar(&opts.timeout, "timeout", devserver.DefaultShutdownTimeout, "Grace period before the server is killed")
	fs.BoolVar(&opts.noOpen, "no-browser", false, "Do not open a browser tab")
	err := fs.Parse(args)
	return opts, err
}

// serverCommand re-executes self in serve mode for the chosen address.
func serverCommand(self, dir string) func(bindIP string, port int) *exec.Cmd {
	return func(bindIP string, port int) *exec.Cmd {
		cmd := exec.Command(self, "serve", "-bind", bindIP, "-port", strconv.Itoa(port), "-dir", dir)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd
	}
}

// exitCode is non-zero when the launcher failed or the server had to be
// killed.
func exitCode(state devserver.State, err error) int {
	if err != nil || state == devserver.StateKilled {
		return 1
	}
	return 0
}

func launch(args []string) int {
	opts, err := parseLaunchFlags(args)
	if err != nil {
		return 2
	}

	self, err := os.Executable()
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	config := devserver.LauncherConfig{
		BindIP:  opts.bindIP,
		MinPort: opts.minPort,
		MaxPort: opts.maxPort,
		Timeout: opts.timeout,
		Command: serverCommand(self, opts.dir),
	}
	if opts.noOpen {
		config.OpenBrowser = func(string) error { return nil }
	}

	launcher, err := devserver.NewLauncher(config)
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := launcher.Run(ctx)
	if err != nil {
		color.Red("Error: %v", err)
	}
	return exitCode(state, err)
}

type serveOptions struct {
	bindIP string
	port   int
	dir    string
}

func parseServeArgs(args []string) (serveOptions, error) {
	var opts serveOptions

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&opts.bindIP, "bind", devserver.DefaultBindIP, "Address to bind to")
	fs.IntVar(&opts.port, "port", devserver.DefaultMinPort, "Port to listen on")
	fs.StringVar(&opts.dir, "dir", ".", "Directory to serve")
	err := fs.Parse(args)
	return opts, err
}

// serve is the child side: a static file server that exits on SIGTERM.
func serve(args []string) {
	opts, err := parseServeArgs(args)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(opts.bindIP, strconv.Itoa(opts.port))
	fmt.Printf("Serving %s on http://%s/\n", opts.dir, addr)

	if err := devserver.Serve(ctx, addr, opts.dir); err != nil {
		stop()
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
