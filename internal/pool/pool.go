// Package pool tracks expensive loaded engine resources against an
// accelerator memory budget. Loading happens outside the pool lock; callers
// build the resource first and Register only publishes it.
package pool

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/metrics"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultProtectThreshold = 8
	defaultPressureRatio    = 0.85
	defaultTargetFreeRatio  = 0.15
	defaultFootprintBytes   = 512 << 20 // conservative guess for opaque resources
)

// Key identifies one cached resource.
type Key struct {
	Owner string
	Name  string
}

func (k Key) String() string { return k.Owner + "/" + k.Name }

// SizeEstimator lets a resource report its own memory footprint. Resources
// that do not implement it fall back to the caller's hint or the package
// default.
type SizeEstimator interface {
	EstimatedSize() uint64
}

// Telemetry reports device-level memory figures for the accelerator in use.
type Telemetry interface {
	PoolStats() (totalBytes, usedBytes, freeBytes uint64)
}

// NopTelemetry is valid when no accelerator is present; all figures are zero
// and the pool falls back to its configured budget.
type NopTelemetry struct{}

func (NopTelemetry) PoolStats() (uint64, uint64, uint64) { return 0, 0, 0 }

// handle is the bookkeeping entry for one resident resource.
type handle struct {
	key         Key
	resource    any
	sizeBytes   uint64
	device      string
	priority    int
	created     time.Time
	lastAccess  time.Time
	accessCount uint64
}

// Config encapsulates all tunables for Pool construction.
type Config struct {
	// BudgetBytes caps resident footprint when telemetry reports no totals.
	// Zero means unlimited.
	BudgetBytes uint64
	// ProtectThreshold is the minimum priority tier eviction never touches.
	ProtectThreshold int
	// PressureRatio is the utilization fraction that triggers optimization
	// after a Register.
	PressureRatio float64
	// TargetFreeRatio is the fraction of capacity to free when pressure
	// triggers.
	TargetFreeRatio float64
	// RecencyPath, when set, enables best-effort persistence of per-key
	// recency metadata across restarts.
	RecencyPath string

	Telemetry Telemetry
	Publisher EventPublisher
	Logger    zerolog.Logger
}

// Pool owns the bookkeeping for every resident resource handle. One mutex
// guards the map; it is held only for metadata mutation, never for loads.
type Pool struct {
	mu      sync.Mutex
	entries map[Key]*handle

	budgetBytes      uint64
	protectThreshold int
	pressureRatio    float64
	targetFreeRatio  float64
	recencyPath      string

	telemetry Telemetry
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	recencyMeta map[string]recencyRecord
}

// New constructs a Pool from Config, applying defaults for unset fields.
func New(cfg Config) *Pool {
	p := &Pool{
		entries:          make(map[Key]*handle),
		budgetBytes:      cfg.BudgetBytes,
		protectThreshold: cfg.ProtectThreshold,
		pressureRatio:    cfg.PressureRatio,
		targetFreeRatio:  cfg.TargetFreeRatio,
		recencyPath:      cfg.RecencyPath,
		telemetry:        cfg.Telemetry,
		publisher:        cfg.Publisher,
		log:              cfg.Logger,
		startTime:        time.Now(),
	}
	if p.protectThreshold <= 0 {
		p.protectThreshold = defaultProtectThreshold
	}
	if p.pressureRatio <= 0 || p.pressureRatio > 1 {
		p.pressureRatio = defaultPressureRatio
	}
	if p.targetFreeRatio <= 0 || p.targetFreeRatio > 1 {
		p.targetFreeRatio = defaultTargetFreeRatio
	}
	if p.telemetry == nil {
		p.telemetry = NopTelemetry{}
	}
	if p.publisher == nil {
		p.publisher = noopPublisher{}
	}
	p.loadRecencyMetadata()
	return p
}

// Register publishes an already-loaded resource under (owner, name). The
// caller performs the slow load first; Register only records metadata. If an
// entry for the key exists, it is replaced and the displaced resource
// reference is returned so the caller can release it (last writer wins).
// sizeHint of zero means "estimate": the resource's own SizeEstimator if
// implemented, else a fixed conservative default.
//
// After insertion the pool runs a pressure check and may evict other entries
// to stay within budget.
func (p *Pool) Register(owner, name string, resource any, device string, priority int, sizeHint uint64) (Key, any) {
	key := Key{Owner: owner, Name: name}
	size := sizeHint
	if size == 0 {
		if est, ok := resource.(SizeEstimator); ok {
			size = est.EstimatedSize()
		}
		if size == 0 {
			size = defaultFootprintBytes
		}
	}

	now := time.Now()
	h := &handle{
		key:        key,
		resource:   resource,
		sizeBytes:  size,
		device:     device,
		priority:   priority,
		created:    now,
		lastAccess: now,
	}

	p.mu.Lock()
	var displaced any
	if prev, ok := p.entries[key]; ok {
		displaced = prev.resource
	}
	p.entries[key] = h
	stats := p.statsLocked()
	p.mu.Unlock()

	metrics.SetResidentBytes(float64(stats.UsedBytes))
	p.log.Debug().Str("key", key.String()).Uint64("size_bytes", size).Int("priority", priority).Msg("pool register")
	p.publisher.Publish(Event{Name: "register", Key: key, Fields: map[string]any{"size_bytes": size, "priority": priority}})

	if stats.TotalBytes > 0 && stats.UtilizationPercent > p.pressureRatio*100 {
		target := uint64(float64(stats.TotalBytes) * p.targetFreeRatio)
		freed := p.Optimize(target)
		if freed > 0 {
			p.log.Info().Uint64("freed_bytes", freed).Msg("pool pressure optimization")
		}
	}
	return key, displaced
}

// Get returns the resource registered under (owner, name). A hit bumps
// last-access and the access counter. A miss is not an error; callers decide
// whether to load and Register.
func (p *Pool) Get(owner, name string) (any, bool) {
	key := Key{Owner: owner, Name: name}
	p.mu.Lock()
	h, ok := p.entries[key]
	var res any
	if ok {
		h.lastAccess = time.Now()
		h.accessCount++
		res = h.resource
	}
	p.mu.Unlock()
	if !ok {
		metrics.IncPoolMiss()
		return nil, false
	}
	metrics.IncPoolHit()
	return res, true
}

// Unload removes the entry for (owner, name). Protected entries (priority at
// or above the protect threshold) are refused unless force is true. Unloading
// an absent key returns false; the call is idempotent, never an error.
func (p *Pool) Unload(owner, name string, force bool) bool {
	key := Key{Owner: owner, Name: name}
	p.mu.Lock()
	h, ok := p.entries[key]
	if !ok {
		p.mu.Unlock()
		return false
	}
	if !force && h.priority >= p.protectThreshold {
		p.mu.Unlock()
		p.log.Debug().Str("key", key.String()).Int("priority", h.priority).Msg("pool unload refused: protected")
		return false
	}
	res := h.resource
	p.removeLocked(h)
	used := p.statsLocked().UsedBytes
	p.mu.Unlock()

	metrics.SetResidentBytes(float64(used))
	p.publisher.Publish(Event{Name: "unload", Key: key, Fields: map[string]any{"forced": force}})
	p.releaseResource(key, res)
	return true
}

// removeLocked deletes the handle from the map. Caller holds the lock.
func (p *Pool) removeLocked(h *handle) {
	delete(p.entries, h.key)
}

// releaseResource closes the resource when it supports closing. Called with a
// reference captured while the handle was still in the map; the handle itself
// is never touched again, so no lock is needed here.
func (p *Pool) releaseResource(key Key, resource any) {
	if c, ok := resource.(io.Closer); ok {
		if err := c.Close(); err != nil {
			p.log.Warn().Err(err).Str("key", key.String()).Msg("pool resource close")
		}
	}
}
