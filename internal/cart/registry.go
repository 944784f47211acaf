package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Registry owns one Store per signed-in user. A store lives from sign-in until
// sign-out, or until it sits idle longer than the session TTL.
type Registry struct {
	gw      Gateway
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Gateway    Gateway
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
	SessionTTL time.Duration
}

// NewRegistry builds an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		gw:      opts.Gateway,
		logg:    opts.Logger,
		metrics: opts.Metrics,
		ttl:     opts.SessionTTL,
		now:     time.Now,
		stores:  map[uuid.UUID]*Store{},
	}
}

// Open starts a fresh store for userID and loads it, replacing and closing any
// previous store for the same user. A failed load still returns the store; its
// view stays empty and is reloaded on next access.
func (r *Registry) Open(ctx context.Context, userID uuid.UUID) (*Store, error) {
	store := NewStore(r.gw, userID, r.logg, r.metrics)

	r.mu.Lock()
	prev := r.stores[userID]
	r.stores[userID] = store
	r.metrics.SetOpenStores(len(r.stores))
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return store, store.Load(ctx)
}

// Get returns the live store for userID.
func (r *Registry) Get(userID uuid.UUID) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[userID]
	if !ok || store.Closed() {
		return nil, false
	}
	return store, true
}

// Acquire returns the live store for userID, creating one when none exists.
// The created store loads lazily.
func (r *Registry) Acquire(userID uuid.UUID) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.stores[userID]; ok && !store.Closed() {
		return store
	}
	store := NewStore(r.gw, userID, r.logg, r.metrics)
	r.stores[userID] = store
	r.metrics.SetOpenStores(len(r.stores))
	return store
}

// Close tears down the store for userID, if any.
func (r *Registry) Close(userID uuid.UUID) {
	r.mu.Lock()
	store := r.stores[userID]
	delete(r.stores, userID)
	r.metrics.SetOpenStores(len(r.stores))
	r.mu.Unlock()

	if store != nil {
		store.Close()
	}
}

// Sweep closes stores idle longer than the session TTL and returns how many it closed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Store
	for userID, store := range r.stores {
		if store.Closed() || store.idleSince().Before(cutoff) {
			expired = append(expired, store)
			delete(r.stores, userID)
		}
	}
	r.metrics.SetOpenStores(len(r.stores))
	r.mu.Unlock()

	for _, store := range expired {
		store.Close()
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && r.logg != nil {
				r.logg.Debug(r.logg.WithField(ctx, "closed", n), "cart stores swept")
			}
		}
	}
}

// CloseAll tears down every store.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	stores := r.stores
	r.stores = map[uuid.UUID]*Store{}
	r.metrics.SetOpenStores(0)
	r.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}

// Len returns the number of stores held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
