// Package connectivity tracks whether the network is reachable and pushes
// transitions to subscribers, so consumers react to connectivity changes
// instead of polling.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Probe reports whether the network currently looks reachable.
type Probe func(ctx context.Context) bool

// DialProbe returns a Probe that attempts a TCP connection to addr.
func DialProbe(addr string, timeout time.Duration) Probe {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor holds the current connectivity state. Listeners are invoked only
// on transitions, never on repeated identical probe results.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	listeners []func(bool)
}

// NewMonitor creates a Monitor that starts in the online state, matching the
// optimistic assumption the mobile client makes before its first probe.
func NewMonitor(probe Probe, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		logger:   logger,
		online:   true,
	}
}

// IsConnected returns the last observed connectivity state.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers a listener fired on every online/offline transition.
// Listeners must not block.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Set records a connectivity observation and notifies listeners when it
// differs from the previous one.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.logger.Info("connectivity changed", slog.Bool("online", online))
	for _, fn := range listeners {
		fn(online)
	}
}

// Run probes connectivity on the configured interval until ctx is
// cancelled. The first probe fires immediately.
func (m *Monitor) Run(ctx context.Context) error {
	if m.probe == nil {
		<-ctx.Done()
		return nil
	}

	m.Set(m.probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Set(m.probe(ctx))
		}
	}
}
