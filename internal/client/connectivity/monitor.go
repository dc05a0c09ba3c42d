// Package connectivity tracks whether the backend is reachable and publishes
// transitions to interested components.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/sangwoolab/townsync/internal/logging"
)

const probeTimeout = 3 * time.Second

// Pinger probes backend reachability. Satisfied by the API client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the current online/offline state. It starts online: absence
// of signal is treated as connected so user actions are never blocked on an
// unproven network.
type Monitor struct {
	pinger Pinger
	logger logging.Logger

	mu      sync.Mutex
	online  bool
	subs    map[int]func(online bool)
	nextSub int
}

func NewMonitor(pinger Pinger, logger logging.Logger) *Monitor {
	return &Monitor{
		pinger: pinger,
		logger: logger,
		online: true,
		subs:   make(map[int]func(bool)),
	}
}

func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetConnected records the state and, on a transition, notifies subscribers.
// Exposed so OS-level reachability callbacks can feed the monitor directly.
func (m *Monitor) SetConnected(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.logger.Info(context.Background(), "connectivity changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn to run on every state transition. The returned
// function unsubscribes.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Watch probes the backend on the given interval until ctx is done, feeding
// results into SetConnected.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := m.pinger.Ping(probeCtx)
			cancel()

			m.SetConnected(err == nil)

		case <-ctx.Done():
			return
		}
	}
}
