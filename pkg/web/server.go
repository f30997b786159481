package web

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/fooweb/internal/sockopt"
)

// Config holds the server construction parameters named in spec.md
// §6, filled with defaults by DefaultConfig/applyDefaults exactly as
// the teacher's server.Config/DefaultConfig does.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":8080".
	Addr string

	Routes      *RouteTable
	ErrorRoutes *RouteTable

	// TLSCertFile/TLSKeyFile, when both set, enable TLS.
	TLSCertFile string
	TLSKeyFile  string

	// Keepalive is the read deadline for the first request on a new
	// connection, counted from when the worker starts reading it; 0
	// disables keep-alive entirely and sets no deadline on that read.
	Keepalive time.Duration

	// RequestTimeout is the read deadline for each later request on a
	// kept-alive connection, counted from when the worker starts
	// waiting for it. The deadline is not re-armed when a request's
	// first byte arrives.
	RequestTimeout time.Duration

	// Backlog is the listen() backlog hint.
	Backlog int

	NumProcesses   int
	MaxProcesses   int
	MaxQueue       int
	PollInterval   time.Duration

	MaxLineSize    int
	MaxHeaders     int
	MaxRequestSize int

	ReadBufferSize  int
	WriteBufferSize int

	ServerName string

	Access  AccessLogger
	Diag    Logger
	Metrics MetricsRecorder
}

// DefaultConfig returns a Config with every tunable from spec.md §6
// filled in: max_line_size=4096, max_headers=64,
// max_request_size=1MiB, and reasonable process-pool/poll defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Keepalive:       5 * time.Second,
		RequestTimeout:  30 * time.Second,
		Backlog:         128,
		NumProcesses:    4,
		MaxProcesses:    32,
		MaxQueue:        64,
		PollInterval:    100 * time.Millisecond,
		MaxLineSize:     4096,
		MaxHeaders:      64,
		MaxRequestSize:  1 << 20,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		ServerName:      "fooweb",
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.Backlog == 0 {
		c.Backlog = d.Backlog
	}
	if c.NumProcesses == 0 {
		c.NumProcesses = d.NumProcesses
	}
	if c.MaxProcesses == 0 {
		c.MaxProcesses = d.MaxProcesses
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = d.MaxLineSize
	}
	if c.MaxHeaders == 0 {
		c.MaxHeaders = d.MaxHeaders
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = d.MaxRequestSize
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.ServerName == "" {
		c.ServerName = d.ServerName
	}
	if c.Routes == nil {
		c.Routes = NewRouteTable()
	}
	if c.ErrorRoutes == nil {
		c.ErrorRoutes = NewRouteTable()
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
}

// Stats mirrors the teacher's atomic-counter Stats shape. Start sets
// StartTime; the connection counters are not updated by the runtime
// and stay at zero.
type Stats struct {
	TotalConnections atomic.Uint64
	ActiveConnections atomic.Int64
	StartTime        time.Time
}

// Server is the façade spec.md §4.9 describes: it binds, applies TLS
// if configured, owns the coordinator and the three long-running
// roles (selector, manager, workers), and exposes Start/Stop/Close/
// Join/IsRunning.
type Server struct {
	cfg      Config
	listener net.Listener
	sel      *selector
	shared   *runtimeShared

	mu      sync.Mutex
	running bool
	stats   Stats
}

// NewServer constructs a Server from cfg, applying defaults for
// zero-valued fields. Keepalive, RequestTimeout, MaxQueue and the TLS
// paths are left as given.
func NewServer(cfg Config) *Server {
	cfg.applyDefaults()
	return &Server{cfg: cfg}
}

// Start binds the listening socket (applying TLS if both cert and key
// paths are configured), and spawns the selector/manager/worker
// runtime.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("web: listen on %s: %w", s.cfg.Addr, err)
	}
	sockopt.TuneListener(ln)

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		cert, cerr := tls.LoadX509KeyPair(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if cerr != nil {
			ln.Close()
			return fmt.Errorf("web: load TLS keypair: %w", cerr)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	s.listener = ln
	s.shared = &runtimeShared{
		connCh:      make(chan net.Conn),
		lock:        NewResourceLock(),
		routes:      s.cfg.Routes,
		errorRoutes: s.cfg.ErrorRoutes,
		cfg:     s.cfg,
		access:  s.cfg.Access,
		diag:    s.cfg.Diag,
		metrics: s.cfg.Metrics,
	}
	s.sel = newSelector(ln, s.shared)
	s.sel.start()
	s.stats.StartTime = time.Now()
	s.running = true
	return nil
}

// Stop signals every running component to shut down and waits for
// them to finish, without closing the listening socket itself twice.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.sel.shutdown()
	s.running = false
}

// Close stops the server and releases its listening socket.
func (s *Server) Close() error {
	s.Stop()
	return nil
}

// Join blocks until the server's selector goroutine has exited,
// i.e. until Stop/Close completes its shutdown.
func (s *Server) Join() {
	s.mu.Lock()
	sel := s.sel
	s.mu.Unlock()
	if sel == nil {
		return
	}
	<-sel.done
}

// IsRunning reports whether the selector is still accepting
// connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.sel != nil && s.sel.isRunning()
}

// Stats returns the server's live Stats, not a copy.
func (s *Server) Stats() *Stats {
	return &s.stats
}
