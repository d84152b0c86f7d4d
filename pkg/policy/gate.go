package policy

import (
	"context"
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// releasedWindow is how many recently released job ids WhenConnected
// remembers for deduplication.
const releasedWindow = 4096

// WhenConnected passes jobs through while conn reports a connection and
// holds them, in arrival order, while it does not. Held jobs are released
// when conn next reports a connection. A job id is released at most once
// within the window of recently released ids, however often the connection
// flaps.
//
// A probe error counts as disconnected.
func WhenConnected(conn core.Connectivity) Policy {
	return func(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob {
		out := make(chan *core.NumberedJob)
		g := &gate{signal: make(chan struct{}, 1)}
		cancel := conn.OnChange(g.observe)

		go func() {
			defer close(out)
			defer cancel()

			connected, err := conn.Probe(ctx)
			g.probed(connected && err == nil)

			released := newIDSet(releasedWindow)
			emit := func(job *core.NumberedJob) bool {
				if released.contains(job.ID) {
					return true
				}
				select {
				case out <- job:
					released.add(job.ID)
					return true
				case <-ctx.Done():
					return false
				}
			}

			var held []*core.NumberedJob
			for {
				if g.connected() && len(held) > 0 {
					for i, job := range held {
						if !emit(job) {
							return
						}
						held[i] = nil
					}
					held = held[:0]
				}
				if in == nil && len(held) == 0 {
					return
				}

				select {
				case job, ok := <-in:
					if !ok {
						in = nil
						continue
					}
					if g.connected() && len(held) == 0 {
						if !emit(job) {
							return
						}
						continue
					}
					held = append(held, job)
				case <-g.signal:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

type gate struct {
	mu     sync.Mutex
	online bool
	// changed is set once OnChange has reported a state, after which the
	// initial probe result no longer applies.
	changed bool
	signal  chan struct{}
}

func (g *gate) observe(connected bool) {
	g.mu.Lock()
	g.online = connected
	g.changed = true
	g.mu.Unlock()
	g.wake()
}

func (g *gate) probed(connected bool) {
	g.mu.Lock()
	if !g.changed {
		g.online = connected
	}
	g.mu.Unlock()
	g.wake()
}

func (g *gate) connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online
}

func (g *gate) wake() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}

// idSet remembers the last n ids added.
type idSet struct {
	ids  map[string]struct{}
	ring []string
	next int
}

func newIDSet(n int) *idSet {
	return &idSet{ids: make(map[string]struct{}, n), ring: make([]string, n)}
}

func (s *idSet) contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *idSet) add(id string) {
	if old := s.ring[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.ring[s.next] = id
	s.ids[id] = struct{}{}
	s.next = (s.next + 1) % len(s.ring)
}
