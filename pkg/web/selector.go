package web

import (
	"net"

	"github.com/yourusername/fooweb/internal/sockopt"
)

// selector waits on the listening socket and hands each accepted
// connection to the worker pool via the shared connection channel,
// starting and owning the manager's lifecycle, per spec.md §4.8.
//
// The source's selector instead sets the listening socket
// non-blocking and posts one signal per pending connection, leaving
// the accept() call itself to whichever worker wins the race. Go's
// net.Listener.Accept already blocks efficiently without a
// busy-polled readiness check, so this selector performs the accept
// itself and hands off the resulting net.Conn; the effect — exactly
// one worker receives each connection, and the selector is the
// component blocked on socket readiness — is the same.
type selector struct {
	listener net.Listener
	shared   *runtimeShared
	mgr      *manager

	stop chan struct{}
	done chan struct{}
}

func newSelector(ln net.Listener, shared *runtimeShared) *selector {
	return &selector{
		listener: ln,
		shared:   shared,
		mgr:      newManager(shared),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *selector) start() {
	s.mgr.start()
	go s.acceptLoop()
}

// acceptLoop blocks on the listener, handing each accepted connection
// to a worker via the shared channel. Shutdown is driven by closing
// the listener (from shutdown, below), which unblocks Accept with an
// error and ends the loop — the same pattern the teacher's BaseServer
// uses for its goroutine-per-connection accept loop.
func (s *selector) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
				continue
			}
		}
		sockopt.TuneAccepted(conn)
		select {
		case s.shared.connCh <- conn:
		case <-s.stop:
			conn.Close()
			return
		}
	}
}

func (s *selector) shutdown() {
	close(s.stop)
	s.listener.Close()
	<-s.done
	s.mgr.shutdown()
	s.shared.lock.cleanAll()
}

func (s *selector) isRunning() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
