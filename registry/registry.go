// Package registry shares store connections between table handles.
//
// A Registry maps a collection id to a single solr.Client. The first
// caller for an id performs the connect handshake; every later caller,
// including callers racing with the first one, receives the same client.
// Entries are never evicted and connections are never closed.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/solr"
)

// Dialer creates a connection bound to collection on the cluster
// identified by locator.
type Dialer func(ctx context.Context, locator, collection string) (solr.Client, error)

// SolrDialer returns a Dialer creating solr.HTTPClient connections. Locator
// and Collection of base are replaced on every dial.
func SolrDialer(base solr.Config) Dialer {
	return func(ctx context.Context, locator, collection string) (solr.Client, error) {
		cfg := base
		cfg.Locator = locator
		cfg.Collection = collection
		return solr.Dial(ctx, cfg)
	}
}

// Target is a connection to pre-create with Warmup.
type Target struct {
	Locator    string
	Collection string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry is safe for concurrent use.
type Registry struct {
	dial    Dialer
	logger  *slog.Logger
	entries sync.Map // collection id -> *entry
}

// entry guards creation of one collection's connection. ready is set once
// client is assigned; after that the entry is read without locking.
type entry struct {
	mu      sync.Mutex
	ready   atomic.Bool
	client  solr.Client
	locator string
}

// New creates an empty registry using dial to create connections.
func New(dial Dialer, opts ...Option) *Registry {
	r := &Registry{
		dial:   dial,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the connection registered for collection, creating
// and registering it when none exists. Concurrent callers for an unseen
// collection serialize on its creation; callers for other collections are
// not blocked. A failed handshake is not cached.
func (r *Registry) GetOrCreate(ctx context.Context, locator, collection string) (solr.Client, error) {
	if collection == "" {
		return nil, solr.Errorf(solr.KindConfiguration, "connect", "", "collection id is required")
	}

	v, _ := r.entries.LoadOrStore(collection, &entry{})
	e := v.(*entry)
	if e.ready.Load() {
		r.checkLocator(e, locator, collection)
		return e.client, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		r.checkLocator(e, locator, collection)
		return e.client, nil
	}

	client, err := r.dial(ctx, locator, collection)
	if err != nil {
		metrics.CounterConnectionFailures.Inc()
		r.logger.Error("Failed to connect to collection",
			"collection", collection,
			"locator", locator,
			"error", err,
		)
		if solr.KindOf(err) == solr.KindUnknown {
			err = solr.NewError(solr.KindConnection, "connect", collection, err)
		}
		return nil, err
	}

	e.client = client
	e.locator = locator
	e.ready.Store(true)

	metrics.CounterConnectionsCreated.Inc()
	r.logger.Info("Created connection",
		"collection", collection,
		"locator", locator,
	)
	return client, nil
}

func (r *Registry) checkLocator(e *entry, locator, collection string) {
	if locator != e.locator {
		r.logger.Warn("Collection already connected through a different locator",
			"collection", collection,
			"registered", e.locator,
			"requested", locator,
		)
	}
}

// Lookup returns the connection for collection without creating one.
func (r *Registry) Lookup(collection string) (solr.Client, bool) {
	v, ok := r.entries.Load(collection)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if !e.ready.Load() {
		return nil, false
	}
	return e.client, true
}

// Len returns the number of established connections.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, v any) bool {
		if v.(*entry).ready.Load() {
			n++
		}
		return true
	})
	return n
}

// Collections returns the ids with an established connection, sorted.
func (r *Registry) Collections() []string {
	var ids []string
	r.entries.Range(func(k, v any) bool {
		if v.(*entry).ready.Load() {
			ids = append(ids, k.(string))
		}
		return true
	})
	sort.Strings(ids)
	return ids
}

// Warmup connects every target concurrently and returns the first failure.
// Targets that connected stay registered.
func (r *Registry) Warmup(ctx context.Context, targets []Target) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			_, err := r.GetOrCreate(ctx, t.Locator, t.Collection)
			return err
		})
	}
	return g.Wait()
}
