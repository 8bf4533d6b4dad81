package pool

import (
	"sort"
	"time"

	"ocrd/internal/metrics"
)

// Optimize evicts unprotected entries until at least targetFreeBytes of
// capacity is free, or no candidates remain. Candidates are ordered by
// priority ascending, then last-access ascending: lowest tier first, and
// within a tier the least recently used first. This ordering is the pool's
// defining invariant. Returns the bytes actually freed, which may fall short
// of the target when only protected entries remain.
func (p *Pool) Optimize(targetFreeBytes uint64) uint64 {
	p.mu.Lock()
	stats := p.statsLocked()
	if stats.FreeBytes >= targetFreeBytes {
		p.mu.Unlock()
		return 0
	}
	deficit := targetFreeBytes - stats.FreeBytes

	candidates := make([]*handle, 0, len(p.entries))
	for _, h := range p.entries {
		if h.priority >= p.protectThreshold {
			continue
		}
		candidates = append(candidates, h)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].lastAccess.Before(candidates[j].lastAccess)
	})

	var freed uint64
	evicted := make([]*handle, 0, len(candidates))
	for _, h := range candidates {
		if freed >= deficit {
			break
		}
		p.removeLocked(h)
		freed += h.sizeBytes
		evicted = append(evicted, h)
	}
	used := p.statsLocked().UsedBytes
	p.mu.Unlock()

	metrics.SetResidentBytes(float64(used))
	for _, h := range evicted {
		metrics.IncEviction("optimize")
		p.log.Info().Str("key", h.key.String()).Uint64("size_bytes", h.sizeBytes).Int("priority", h.priority).Msg("pool evict")
		p.publisher.Publish(Event{Name: "evict", Key: h.key, Fields: map[string]any{"size_bytes": h.sizeBytes}})
		p.releaseResource(h.key, h.resource)
	}
	return freed
}

// CleanupIdle unloads every unprotected entry whose last access is older than
// maxIdle. Returns the number of entries removed.
func (p *Pool) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	var stale []*handle
	for _, h := range p.entries {
		if h.priority >= p.protectThreshold {
			continue
		}
		if h.lastAccess.Before(cutoff) {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		p.removeLocked(h)
	}
	used := p.statsLocked().UsedBytes
	p.mu.Unlock()

	metrics.SetResidentBytes(float64(used))
	for _, h := range stale {
		metrics.IncEviction("idle")
		p.log.Info().Str("key", h.key.String()).Dur("idle", time.Since(h.lastAccess)).Msg("pool idle cleanup")
		p.publisher.Publish(Event{Name: "idle_cleanup", Key: h.key, Fields: map[string]any{"size_bytes": h.sizeBytes}})
		p.releaseResource(h.key, h.resource)
	}
	return len(stale)
}
