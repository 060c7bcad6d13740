// Package netutil provides the TCP probes used to judge whether the
// deployed service is accepting connections.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Listening reports whether something accepts TCP connections on the
// given host and port within the timeout.
func Listening(host string, port int, timeout time.Duration) bool {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WaitForPort polls until the port accepts connections or the timeout
// elapses. Used to give a freshly started service time to bind.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	if Listening(host, port, time.Second) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s to listen", address)
		case <-ticker.C:
			if Listening(host, port, time.Second) {
				return nil
			}
		}
	}
}
