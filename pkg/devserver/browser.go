package devserver

import (
	"net"
	"strconv"

	"github.com/pkg/browser"
)

// OpenBrowser opens url in the user's default browser.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

// BrowserURL is the address to open for a server bound to bindIP. Loopback
// and wildcard binds are opened through localhost.
func BrowserURL(bindIP string, port int) string {
	host := "localhost"
	if ip := net.ParseIP(bindIP); ip != nil && !ip.IsLoopback() && !ip.IsUnspecified() {
		host = bindIP
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}
