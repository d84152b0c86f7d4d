package jobs

import (
	"context"
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// DefaultStoreName is used when a store name is empty.
const DefaultStoreName = "default"

var (
	storesMu sync.Mutex
	stores   = make(map[string]*Queue)
)

func storeName(name string) string {
	if name == "" {
		return DefaultStoreName
	}
	return name
}

// InitializeStore opens the store name on kv, starts dispatch and registers
// the queue under name for later lookup with Store. An empty name means
// DefaultStoreName. A name may be initialized again only after CloseStore.
func InitializeStore(ctx context.Context, name string, kv KV, opts ...Option) (*Queue, error) {
	name = storeName(name)

	storesMu.Lock()
	defer storesMu.Unlock()
	if _, ok := stores[name]; ok {
		return nil, core.Configuration("", core.ErrStoreAlreadyInitialized)
	}

	q, err := New(ctx, name, kv, opts...)
	if err != nil {
		return nil, err
	}
	stores[name] = q
	return q, nil
}

// Store returns the queue registered under name by InitializeStore.
func Store(name string) (*Queue, error) {
	name = storeName(name)

	storesMu.Lock()
	defer storesMu.Unlock()
	q, ok := stores[name]
	if !ok {
		return nil, core.Configuration("", core.ErrStoreNotInitialized)
	}
	return q, nil
}

// CloseStore closes the queue registered under name and unregisters it.
// Closing a name that is not registered returns ErrStoreNotInitialized.
func CloseStore(name string) error {
	name = storeName(name)

	storesMu.Lock()
	q, ok := stores[name]
	delete(stores, name)
	storesMu.Unlock()

	if !ok {
		return core.Configuration("", core.ErrStoreNotInitialized)
	}
	return q.Close()
}
