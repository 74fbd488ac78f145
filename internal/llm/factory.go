package llm

import (
	"context"
	"sync"
)

// Factory hands out LLM clients keyed by identity (a sender address, or
// "" for the shared default). Clients are cached for the factory's
// lifetime behind an explicit mutex; lifetime and thread-safety live
// here, not in package-level globals.
type Factory struct {
	build func(ctx context.Context, identity string) (Client, error)

	mu      sync.Mutex
	clients map[string]Client
}

// NewFactory creates a factory around a client constructor. The
// constructor is called once per distinct identity.
func NewFactory(build func(ctx context.Context, identity string) (Client, error)) *Factory {
	return &Factory{
		build:   build,
		clients: make(map[string]Client),
	}
}

// NewStaticFactory returns a factory that hands the same client to every
// identity. Used when per-user API keys are not configured, and by tests.
func NewStaticFactory(client Client) *Factory {
	return NewFactory(func(ctx context.Context, identity string) (Client, error) {
		return client, nil
	})
}

// Get returns the cached client for an identity, constructing it on first
// use.
func (f *Factory) Get(ctx context.Context, identity string) (Client, error) {
	f.mu.Lock()
	if client, ok := f.clients[identity]; ok {
		f.mu.Unlock()
		return client, nil
	}
	f.mu.Unlock()

	// Build outside the lock; constructors may do network I/O.
	client, err := f.build(ctx, identity)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.clients[identity]; ok {
		return existing, nil
	}
	f.clients[identity] = client
	return client, nil
}
