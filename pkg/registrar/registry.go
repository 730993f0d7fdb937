package registrar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reseller/pkg/logger"
	"reseller/pkg/serrors"

	"go.uber.org/zap"
)

// Config is the per-registrar configuration block resolved by the registry.
type Config struct {
	// Slug is the registrar identifier used throughout the system.
	Slug string
	// Driver selects the adapter constructor (e.g. "logicboxes", "fake").
	Driver string
	// Active gates resolution; inactive registrars fail closed.
	Active bool

	// BaseURL is the vendor API base URL; empty uses the adapter default.
	BaseURL string
	// Timeout is the per-call deadline applied by adapters.
	Timeout time.Duration
	// RateLimit and RateWindow configure the per-operation call budget.
	RateLimit  int
	RateWindow time.Duration
	// CacheTTL overrides the idempotent-read cache TTL.
	CacheTTL time.Duration
	// MaxNameservers overrides the vendor nameserver count bound.
	MaxNameservers int
	// DefaultNameservers are used when a registration supplies none.
	DefaultNameservers []string
	// TestMode routes the adapter at the vendor's sandbox where supported.
	TestMode bool

	// Credentials is an opaque key-value map handed to the adapter. It is
	// never logged in full.
	Credentials map[string]string
}

// Constructor builds a concrete adapter from its configuration.
type Constructor func(cfg Config) (Client, error)

// Registry resolves registrar slugs to live, validated adapter instances.
// Drivers are registered in an explicit table (no dynamic loading), configs
// come from the application configuration, and instances are cached behind a
// concurrency-safe map. Constructed once at process start and passed by
// injection.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	configs      map[string]Config
	instances    map[string]*Base
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		configs:      make(map[string]Config),
		instances:    make(map[string]*Base),
	}
}

// RegisterDriver adds an adapter constructor under a driver name. Adding a
// new registrar backend means registering its driver here and configuring a
// block; the resolution logic never changes.
func (r *Registry) RegisterDriver(driver string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[driver] = ctor
}

// Configure installs (or replaces) registrar configuration blocks. Cached
// instances for reconfigured slugs are dropped.
func (r *Registry) Configure(cfgs ...Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cfg := range cfgs {
		r.configs[cfg.Slug] = cfg
		delete(r.instances, cfg.Slug)
	}
}

// Get resolves a registrar slug to a live adapter wrapped with the shared
// base behavior. It fails closed with a descriptive error on: unknown slug,
// inactive registrar, unknown driver, or constructor failure.
func (r *Registry) Get(ctx context.Context, slug string) (Client, error) {
	inst, err := r.get(ctx, slug)
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func (r *Registry) get(ctx context.Context, slug string) (*Base, error) {
	r.mu.RLock()
	if inst, ok := r.instances[slug]; ok {
		r.mu.RUnlock()

		return inst, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// another goroutine may have built it while we upgraded the lock
	if inst, ok := r.instances[slug]; ok {
		return inst, nil
	}

	cfg, ok := r.configs[slug]
	if !ok {
		return nil, serrors.With(serrors.ErrRegistrarNotFound, "registrar %q is not configured", slug)
	}
	if !cfg.Active {
		return nil, serrors.With(serrors.ErrRegistrarInactive, "registrar %q is inactive", slug)
	}

	ctor, ok := r.constructors[cfg.Driver]
	if !ok {
		return nil, serrors.With(serrors.ErrRegistrarNotFound,
			"registrar %q uses unknown driver %q", slug, cfg.Driver)
	}

	inner, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not construct adapter for registrar %q: %w", slug, err)
	}
	if inner == nil {
		return nil, serrors.With(serrors.ErrInternal,
			"driver %q returned no adapter for registrar %q", cfg.Driver, slug)
	}

	inst := WrapBase(inner, BaseOptions{
		RateLimit:          cfg.RateLimit,
		RateWindow:         cfg.RateWindow,
		CacheTTL:           cfg.CacheTTL,
		MaxNameservers:     cfg.MaxNameservers,
		DefaultNameservers: cfg.DefaultNameservers,
	})
	r.instances[slug] = inst

	logger.Debug(ctx, "registrar adapter instantiated",
		zap.String("registrar", slug), zap.String("driver", cfg.Driver))

	return inst, nil
}

// Clear drops the cached instance for one slug, forcing the next Get to
// rebuild it (credential rotation).
func (r *Registry) Clear(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.instances, slug)
}

// ClearAll drops every cached instance.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[string]*Base)
}

// Config returns the configuration block for a slug.
func (r *Registry) Config(slug string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[slug]

	return cfg, ok
}

// Active resolves every active registrar, skipping (with a warning) any that
// fail to load. Partial availability beats total failure.
func (r *Registry) Active(ctx context.Context) []*Base {
	r.mu.RLock()
	slugs := make([]string, 0, len(r.configs))
	for slug, cfg := range r.configs {
		if cfg.Active {
			slugs = append(slugs, slug)
		}
	}
	r.mu.RUnlock()
	sort.Strings(slugs)

	out := make([]*Base, 0, len(slugs))
	for _, slug := range slugs {
		client, err := r.get(ctx, slug)
		if err != nil {
			logger.Warn(ctx, "skipping registrar that failed to load",
				zap.String("registrar", slug), zap.Error(err))

			continue
		}
		out = append(out, client)
	}

	return out
}
