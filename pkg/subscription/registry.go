// Package subscription fans job lifecycle notifications out to per-topic
// subscribers.
package subscription

import (
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// Callback receives notifications for one topic. Callbacks run on the
// goroutine that produced the notification and must not subscribe from
// inside the callback; unsubscribing is allowed.
type Callback func(core.Notification)

// LookupFunc returns the live job currently tracked under topic.
type LookupFunc func(topic string) (*core.NumberedJob, bool)

type topic struct {
	// deliver serializes catch-up and notifications for the topic so every
	// subscriber receives its catch-up before anything else.
	deliver sync.Mutex

	mu   sync.Mutex
	next int
	subs map[int]Callback
}

func (t *topic) snapshot() []Callback {
	t.mu.Lock()
	defer t.mu.Unlock()
	cbs := make([]Callback, 0, len(t.subs))
	for _, cb := range t.subs {
		cbs = append(cbs, cb)
	}
	return cbs
}

// Registry tracks subscribers by topic.
type Registry struct {
	lookup LookupFunc

	mu     sync.Mutex
	topics map[string]*topic
}

// NewRegistry creates a registry that uses lookup to build catch-up
// notifications.
func NewRegistry(lookup LookupFunc) *Registry {
	return &Registry{
		lookup: lookup,
		topics: make(map[string]*topic),
	}
}

func (r *Registry) get(name string, create bool) *topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[name]
	if !ok && create {
		t = &topic{subs: make(map[int]Callback)}
		r.topics[name] = t
	}
	return t
}

// Add registers cb for name and delivers exactly one catch-up notification:
// JOB_INTERMEDIATE with the last checkpoint if the tracked job has one,
// JOB_STARTED if a job is tracked without a checkpoint, and JOB_NOT_FOUND
// otherwise. The returned function unsubscribes cb.
func (r *Registry) Add(name string, cb Callback) func() {
	t := r.lock(name, true)
	defer t.deliver.Unlock()

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = cb
	t.mu.Unlock()

	cb(r.catchUp(name))

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

func (r *Registry) catchUp(name string) core.Notification {
	job, ok := r.lookup(name)
	switch {
	case !ok:
		return core.NotFound
	case job.HasState():
		return core.Intermediate(job.State)
	default:
		return core.Started
	}
}

// Notify delivers n to every current subscriber of name. Delivery order
// across subscribers is unspecified.
func (r *Registry) Notify(name string, n core.Notification) {
	t := r.lock(name, false)
	if t == nil {
		return
	}
	defer t.deliver.Unlock()
	for _, cb := range t.snapshot() {
		cb(n)
	}
}

// Complete delivers n to every current subscriber of name and then drops
// them, as one step: a subscriber added afterwards starts a fresh set and
// sees later jobs under the same topic.
func (r *Registry) Complete(name string, n core.Notification) {
	t := r.lock(name, false)
	if t == nil {
		return
	}
	defer t.deliver.Unlock()
	for _, cb := range t.snapshot() {
		cb(n)
	}
	r.drop(name, t)
}

// Remove drops every subscriber of name without notifying them.
func (r *Registry) Remove(name string) {
	t := r.lock(name, false)
	if t == nil {
		return
	}
	defer t.deliver.Unlock()
	r.drop(name, t)
}

// lock returns the topic registered under name with its deliver lock held.
// A topic dropped while the caller waited for the lock is skipped.
func (r *Registry) lock(name string, create bool) *topic {
	for {
		t := r.get(name, create)
		if t == nil {
			return nil
		}
		t.deliver.Lock()
		r.mu.Lock()
		current := r.topics[name] == t
		r.mu.Unlock()
		if current {
			return t
		}
		t.deliver.Unlock()
	}
}

func (r *Registry) drop(name string, t *topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.topics[name] == t {
		delete(r.topics, name)
	}
}

// Count returns the number of subscribers of name.
func (r *Registry) Count(name string) int {
	t := r.get(name, false)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
