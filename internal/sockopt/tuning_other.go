//go:build !linux

package sockopt

import "net"

// TuneAccepted is a no-op on non-Linux platforms.
func TuneAccepted(conn net.Conn) {}

// TuneListener is a no-op on non-Linux platforms.
func TuneListener(ln net.Listener) {}
