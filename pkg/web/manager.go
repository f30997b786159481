package web

import (
	"sync"
	"time"
)

// manager supervises the worker pool: it starts NumProcesses workers,
// restarts ones it observes have died, and scales the pool between
// NumProcesses and MaxProcesses based on queue depth, per spec.md
// §4.7.
type manager struct {
	shared *runtimeShared

	mu      sync.Mutex
	workers []*worker
	nextID  int

	stop chan struct{}
	done chan struct{}
}

func newManager(shared *runtimeShared) *manager {
	return &manager{shared: shared, stop: make(chan struct{}), done: make(chan struct{})}
}

func (m *manager) start() {
	cfg := m.shared.cfg
	for i := 0; i < cfg.NumProcesses; i++ {
		m.spawn()
	}
	go m.supervise()
}

func (m *manager) spawn() *worker {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	w := newWorker(id, m.shared)
	m.workers = append(m.workers, w)
	count := len(m.workers)
	m.mu.Unlock()
	m.shared.metrics.SetWorkerPoolSize(count)
	go w.run()
	return w
}

// supervise polls at PollInterval, matching spec.md §4.7.
func (m *manager) supervise() {
	defer close(m.done)
	cfg := m.shared.cfg
	for {
		select {
		case <-m.stop:
			m.shutdownAll()
			return
		case <-time.After(cfg.PollInterval):
		}
		m.reapDead()
		m.scale()
	}
}

func (m *manager) reapDead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.workers {
		select {
		case <-w.done:
			m.shared.lock.Clean(w.id)
			nw := newWorker(w.id, m.shared)
			m.workers[i] = nw
			go nw.run()
		default:
		}
	}
}

func (m *manager) scale() {
	cfg := m.shared.cfg
	m.mu.Lock()
	count := len(m.workers)
	m.mu.Unlock()

	queueDepth := m.shared.requestCounter.Load()

	if cfg.MaxQueue > 0 && int(queueDepth) >= cfg.MaxQueue && count < cfg.MaxProcesses {
		m.spawn()
		return
	}

	if count > cfg.NumProcesses && queueDepth == 0 {
		m.mu.Lock()
		last := m.workers[len(m.workers)-1]
		m.workers = m.workers[:len(m.workers)-1]
		remaining := len(m.workers)
		m.mu.Unlock()
		close(last.stop)
		<-last.done
		m.shared.metrics.SetWorkerPoolSize(remaining)
	}
}

func (m *manager) shutdownAll() {
	m.mu.Lock()
	workers := append([]*worker(nil), m.workers...)
	m.mu.Unlock()
	for _, w := range workers {
		close(w.stop)
	}
	for _, w := range workers {
		<-w.done
	}
}

func (m *manager) shutdown() {
	close(m.stop)
	<-m.done
}
