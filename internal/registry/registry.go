// Package registry holds every recognition engine by name and dispatches
// processing requests to them. Construction failures degrade gracefully: the
// failed name stays in the map as an inert placeholder carrying the failure
// reason, so the system always starts with a complete name set.
package registry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"ocrd/internal/provider"
	"ocrd/pkg/types"
)

// entry is one registered engine slot: either a live engine or a placeholder
// descriptor for one that failed to construct. The variant is fixed at
// registration time; a live engine may still report itself unavailable at
// runtime, but a placeholder never becomes live.
type entry struct {
	engine provider.Engine // nil for placeholders
	info   types.EngineInfo
}

func (e *entry) available() bool {
	return e.engine != nil && e.engine.IsAvailable()
}

// Registry is safe for concurrent use by many request workers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	annotator *provider.LanguageAnnotator
	log       zerolog.Logger
}

// Option tweaks registry construction.
type Option func(*Registry)

// WithLanguageAnnotator enables result language detection on dispatch.
func WithLanguageAnnotator(a *provider.LanguageAnnotator) Option {
	return func(r *Registry) { r.annotator = a }
}

func New(log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register invokes construct and stores the engine under name. Any failure,
// including a panic, is contained: the slot becomes an unavailable
// placeholder carrying the reason, and registration still succeeds from the
// caller's point of view.
func (r *Registry) Register(name string, construct provider.ConstructFunc) {
	eng, err := buildEngine(construct)

	r.mu.Lock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	if err != nil {
		r.entries[name] = &entry{info: types.EngineInfo{
			Name:      name,
			Available: false,
			Reason:    err.Error(),
		}}
		r.mu.Unlock()
		r.log.Warn().Str("engine", name).Err(err).Msg("registry engine construction failed; placeholder registered")
		return
	}
	info := eng.Info()
	info.Name = name
	info.Available = eng.IsAvailable()
	r.entries[name] = &entry{engine: eng, info: info}
	r.mu.Unlock()
	r.log.Info().Str("engine", name).Bool("available", info.Available).Msg("registry engine registered")
}

// buildEngine isolates construct so a panic inside it is recovered into an
// error.
func buildEngine(construct provider.ConstructFunc) (eng provider.Engine, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			eng = nil
			err = fmt.Errorf("construction panic: %v", rec)
		}
	}()
	eng, err = construct()
	if err == nil && eng == nil {
		err = fmt.Errorf("constructor returned no engine")
	}
	return eng, err
}

// Get returns the descriptor for name with live availability, or nil when the
// name is unknown.
func (r *Registry) Get(name string) *types.EngineInfo {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	info := e.info
	info.Available = e.available()
	return &info
}

// IsAvailable reports whether name is registered, live, and ready for work.
// Implements selector.Availability.
func (r *Registry) IsAvailable(name string) bool {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	return ok && e.available()
}

// ListAvailable returns the names of engines currently able to take work, in
// registration order.
func (r *Registry) ListAvailable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.order {
		if e, ok := r.entries[name]; ok && e.available() {
			out = append(out, name)
		}
	}
	return out
}

// List returns every descriptor in registration order, placeholders included.
func (r *Registry) List() []types.EngineInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.EngineInfo, 0, len(r.order))
	for _, name := range r.order {
		if e, ok := r.entries[name]; ok {
			info := e.info
			info.Available = e.available()
			out = append(out, info)
		}
	}
	return out
}

// lookup returns the live engine for name, or an error when the name is
// unknown or its slot cannot take work.
func (r *Registry) lookup(name string) (provider.Engine, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok || !e.available() {
		return nil, ErrEngineNotFound(name)
	}
	return e.engine, nil
}
