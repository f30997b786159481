package web

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"
)

// pendingCycle is one entry in a worker's local FIFO: a connection
// either freshly accepted or requeued after a keep-alive cycle or a
// resource-lock wait, per spec.md §4.6.
type pendingCycle struct {
	req              *Request
	bw               *bufio.Writer
	keepaliveEnabled bool
	initialTimeout   time.Duration
	alreadyHandled   bool
}

// worker owns exactly one goroutine and a private FIFO of in-flight
// connections; it cycles each connection until it closes, per
// spec.md §4.6.
type worker struct {
	id int

	shared *runtimeShared

	local chan *pendingCycle
	stop  chan struct{}
	done  chan struct{}
}

// runtimeShared is the state every worker and the manager share: the
// connection hand-off channel fed by the selector, the resource
// coordinator, route tables, server identity, and the live request
// counter the manager watches to decide when to scale.
type runtimeShared struct {
	connCh chan net.Conn

	lock        *ResourceLock
	routes      *RouteTable
	errorRoutes *RouteTable

	cfg Config

	access  AccessLogger
	diag    Logger
	metrics MetricsRecorder

	requestCounter atomic.Int64
	nextRequestID  atomic.Uint64
}

func newWorker(id int, shared *runtimeShared) *worker {
	return &worker{
		id:     id,
		shared: shared,
		local:  make(chan *pendingCycle, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// run is the worker's main loop (spec.md §4.6 steps 1-8). It exits
// when stop is closed, after draining and closing any connections
// still in its local FIFO.
func (w *worker) run() {
	defer close(w.done)
	defer w.drainAndClose()
	// A panic ends this worker like any other exit; the manager sees
	// done closed and respawns it.
	defer func() { recover() }()

	poll := w.shared.cfg.PollInterval
	for {
		select {
		case <-w.stop:
			return
		case conn := <-w.shared.connCh:
			w.accept(conn)
		case <-time.After(poll):
		}

		select {
		case entry := <-w.local:
			w.cycle(entry)
		default:
		}
	}
}

func (w *worker) accept(conn net.Conn) {
	id := w.shared.nextRequestID.Add(1)
	req := newRequest(id, conn, w.shared.cfg.ReadBufferSize)
	bw := bufio.NewWriterSize(conn, w.shared.cfg.WriteBufferSize)
	w.shared.requestCounter.Add(1)
	w.shared.metrics.SetActiveConnections(int(w.shared.requestCounter.Load()))
	w.local <- &pendingCycle{
		req:              req,
		bw:               bw,
		keepaliveEnabled: w.shared.cfg.Keepalive > 0,
		initialTimeout:   w.shared.cfg.Keepalive,
		alreadyHandled:   false,
	}
}

// cycle runs one request/response turn for entry, then decides
// whether to requeue it (keep-alive or lock-wait) or close the
// connection, per spec.md §4.6 steps 5-7.
func (w *worker) cycle(entry *pendingCycle) {
	outcome, terminal := w.handleOne(entry)

	if !terminal {
		if entry.req.Close {
			// The 100-Continue liveness probe failed to write: the
			// peer is gone, don't requeue.
			entry.req.Conn.Close()
			w.shared.requestCounter.Add(-1)
			w.shared.metrics.SetActiveConnections(int(w.shared.requestCounter.Load()))
			return
		}
		// Lock-wait requeue: brief delay before the retry is even
		// eligible to be popped again, per the worker loop's step 5.
		time.Sleep(pollDelay)
		w.shared.metrics.ObserveLockWait(pollDelay)
		w.local <- entry
		return
	}

	w.shared.requestCounter.Add(-1)
	w.shared.metrics.SetActiveConnections(int(w.shared.requestCounter.Load()))

	if outcome == Handled && entry.keepaliveEnabled && entry.req.Keepalive && !entry.req.Close {
		entry.initialTimeout = w.shared.cfg.Keepalive
		entry.alreadyHandled = true
		entry.req.Skip = false
		w.shared.requestCounter.Add(1)
		w.local <- entry
		return
	}

	entry.req.Conn.Close()
}

// handleOne performs the parse-then-serve turn for entry. terminal is
// false exactly when the cycle must be retried because of a
// resource-lock wait.
func (w *worker) handleOne(entry *pendingCycle) (outcome Outcome, terminal bool) {
	req := entry.req

	timeout := entry.initialTimeout
	if entry.alreadyHandled {
		timeout = w.shared.cfg.RequestTimeout
	}

	parseOut, perr := req.parse(w.shared.routes, w.shared.cfg.MaxLineSize, w.shared.cfg.MaxHeaders, timeout)
	if parseOut == parseConnClosed {
		req.Close = true
		req.Keepalive = false
		return Handled, true
	}

	resp := newResponse(entry.bw)
	owner := ownerID{workerID: w.id, requestID: req.ID}

	outcome = Serve(req, resp, Deps{
		Routes:         w.shared.routes,
		ErrorRoutes:    w.shared.errorRoutes,
		Lock:           w.shared.lock,
		ServerName:     w.shared.cfg.ServerName,
		MaxRequestSize: w.shared.cfg.MaxRequestSize,
		Access:         w.shared.access,
		Diag:           w.shared.diag,
		Metrics:        w.shared.metrics,
	}, owner, perr)

	if outcome == NotYetHandled {
		return outcome, false
	}
	return outcome, true
}

func (w *worker) drainAndClose() {
	for {
		select {
		case entry := <-w.local:
			entry.req.Conn.Close()
		default:
			return
		}
	}
}
