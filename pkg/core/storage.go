package core

import (
	"context"
)

// Entry is a single key/value pair written by KV.BatchSet.
type Entry struct {
	Key   string
	Value []byte
}

// KV is the storage collaborator used by the record store. Implementations
// are treated as reliable but possibly slow; errors are returned to the
// caller and never retried.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error

	// BatchSet writes all entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error
	BatchRemove(ctx context.Context, keys []string) error
}

// Connectivity reports whether the host is currently connected.
type Connectivity interface {
	// Probe returns the current connectivity state.
	Probe(ctx context.Context) (bool, error)

	// OnChange registers fn to be called on every transition. The returned
	// function removes the registration.
	OnChange(fn func(connected bool)) (cancel func())
}
