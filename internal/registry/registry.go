// Package registry keeps the reflected entities of one connection.
// Each entity is reflected at most once; concurrent callers share the
// in-flight load, and failed loads are retried on the next call.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"daogen/internal/introspection"
)

// Loader reflects one entity.
type Loader func(ctx context.Context, name string) (*introspection.Entity, error)

// Config controls registry behavior.
type Config struct {
	Load   Loader
	Logger *slog.Logger
	// Concurrency bounds EnsureAll; zero means unbounded.
	Concurrency int
}

// Registry maps entity names to reflected descriptors.
type Registry struct {
	load        Loader
	logger      *slog.Logger
	concurrency int

	mu         sync.RWMutex
	entities   map[string]*introspection.Entity
	generation uint64
	group      singleflight.Group
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		load:        cfg.Load,
		logger:      logger,
		concurrency: cfg.Concurrency,
		entities:    make(map[string]*introspection.Entity),
	}
}

// Lookup returns a ready entity without loading.
func (r *Registry) Lookup(name string) (*introspection.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Register stores an entity reflected elsewhere, replacing any previous one.
func (r *Registry) Register(entity *introspection.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[entity.Name] = entity
}

// Names returns the names of ready entities, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ensure returns the named entity, reflecting it on first use.
func (r *Registry) Ensure(ctx context.Context, name string) (*introspection.Entity, error) {
	if e, ok := r.Lookup(name); ok {
		return e, nil
	}
	if r.load == nil {
		return nil, fmt.Errorf("%w: %s", introspection.ErrEntityNotFound, name)
	}

	r.mu.RLock()
	generation := r.generation
	r.mu.RUnlock()

	ch := r.group.DoChan(name, func() (any, error) {
		if e, ok := r.Lookup(name); ok {
			return e, nil
		}
		entity, err := r.load(context.WithoutCancel(ctx), name)
		if err != nil {
			r.logger.Warn("entity load failed", slog.String("entity", name), slog.String("error", err.Error()))
			return nil, err
		}
		r.mu.Lock()
		if r.generation == generation {
			r.entities[name] = entity
		}
		r.mu.Unlock()
		r.logger.Debug("entity ready", slog.String("entity", name), slog.Int("columns", len(entity.Columns)))
		return entity, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*introspection.Entity), nil
	}
}

// EnsureAll readies several entities concurrently and returns them in
// argument order.
func (r *Registry) EnsureAll(ctx context.Context, names ...string) ([]*introspection.Entity, error) {
	entities := make([]*introspection.Entity, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			e, err := r.Ensure(gctx, name)
			if err != nil {
				return err
			}
			entities[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entities, nil
}

// Reset forgets every entity. Loads still in flight are not stored.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = make(map[string]*introspection.Entity)
	r.generation++
}
