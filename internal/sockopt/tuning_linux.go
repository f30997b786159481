//go:build linux

// Package sockopt applies platform-specific listening-socket tuning.
// Grounded on
// _examples/.../shockwave/pkg/shockwave/socket/tuning_linux.go, ported
// from bare syscall to golang.org/x/sys/unix, an already-real teacher
// dependency (used elsewhere in the pack for x/sys/cpu).
package sockopt

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// TuneAccepted applies TCP_QUICKACK to a freshly accepted connection
// to reduce delayed-ACK latency on the request/response turnaround
// this server's keep-alive cycle depends on.
func TuneAccepted(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	})
}

// TuneListener applies TCP_DEFER_ACCEPT to the listening socket so
// the kernel does not wake the selector for a new connection until
// the client has sent its first data.
func TuneListener(ln net.Listener) {
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1)
	})
}
