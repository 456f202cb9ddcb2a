package devserver

import (
	"fmt"
	"net"
	"strconv"
)

const (
	DefaultBindIP  = "127.0.0.1"
	DefaultMinPort = 8000
	DefaultMaxPort = 9000
)

// FindOpenPort returns the first port in [minPort, maxPort) that bindIP can
// listen on. Each test listener is closed before moving on. When every port in the
// range is taken it asks the OS for an ephemeral port instead.
func FindOpenPort(bindIP string, minPort, maxPort int) (int, error) {
	for port := minPort; port < maxPort; port++ {
		if canListen(bindIP, port) {
			return port, nil
		}
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(bindIP, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to bind %s: %w", bindIP, err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func canListen(bindIP string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(bindIP, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
