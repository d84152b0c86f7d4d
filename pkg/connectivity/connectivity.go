// Package connectivity provides connectivity sensors for policy.WhenConnected.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(bool)
}

func (l *listeners) add(fn func(bool)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(bool))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) fire(connected bool) {
	l.mu.Lock()
	fns := make([]func(bool), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

// Manual is a sensor whose state is set by the application.
type Manual struct {
	mu        sync.Mutex
	connected bool
	listeners listeners
}

// NewManual creates a Manual sensor in the given state.
func NewManual(connected bool) *Manual {
	return &Manual{connected: connected}
}

// Set changes the state. Listeners are called only on a transition.
func (m *Manual) Set(connected bool) {
	m.mu.Lock()
	changed := m.connected != connected
	m.connected = connected
	m.mu.Unlock()

	if changed {
		m.listeners.fire(connected)
	}
}

// Probe returns the current state.
func (m *Manual) Probe(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected, nil
}

// OnChange registers fn for transitions.
func (m *Manual) OnChange(fn func(bool)) func() {
	return m.listeners.add(fn)
}

// ProbeFunc checks connectivity once.
type ProbeFunc func(ctx context.Context) (bool, error)

// DialProbe reports whether a TCP connection to addr can be opened within
// timeout.
func DialProbe(addr string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	}
}

// Poller turns a ProbeFunc into a sensor by polling it.
type Poller struct {
	probe    ProbeFunc
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	connected bool
	known     bool
	listeners listeners
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the logger used for probe errors.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// NewPoller creates a sensor that calls probe every interval once Run is
// started.
func NewPoller(probe ProbeFunc, interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		probe:    probe,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe calls the underlying probe and records the result.
func (p *Poller) Probe(ctx context.Context) (bool, error) {
	connected, err := p.probe(ctx)
	if err != nil {
		return false, err
	}
	p.record(connected)
	return connected, nil
}

// OnChange registers fn for transitions observed by Run or Probe.
func (p *Poller) OnChange(fn func(bool)) func() {
	return p.listeners.add(fn)
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Probe(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("connectivity probe failed", "error", err)
			p.record(false)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) record(connected bool) {
	p.mu.Lock()
	changed := !p.known || p.connected != connected
	p.connected = connected
	p.known = true
	p.mu.Unlock()

	if changed {
		p.listeners.fire(connected)
	}
}

var (
	_ core.Connectivity = (*Manual)(nil)
	_ core.Connectivity = (*Poller)(nil)
)
