package pool

import (
	"time"

	"ocrd/pkg/types"
)

// statsLocked recomputes pool stats from telemetry and resident footprints.
// Caller holds the lock.
func (p *Pool) statsLocked() types.PoolStats {
	total, used, _ := p.telemetry.PoolStats()
	if total == 0 {
		total = p.budgetBytes
	}
	var resident uint64
	for _, h := range p.entries {
		resident += h.sizeBytes
	}
	if resident > used {
		used = resident
	}
	var free uint64
	if total > used {
		free = total - used
	}
	s := types.PoolStats{TotalBytes: total, UsedBytes: used, FreeBytes: free}
	if total > 0 {
		s.UtilizationPercent = float64(used) / float64(total) * 100
	}
	return s
}

// Stats returns a point-in-time utilization view combining device telemetry
// with the sum of resident footprints.
func (p *Pool) Stats() types.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

// Snapshot returns a read-only projection of the resident set for status
// reporting.
func (p *Pool) Snapshot() types.PoolSnapshot {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := types.PoolSnapshot{
		Stats:         p.statsLocked(),
		UptimeSeconds: int64(now.Sub(p.startTime).Seconds()),
	}
	for _, h := range p.entries {
		snap.Resident = append(snap.Resident, types.ResidentResource{
			Owner:       h.key.Owner,
			Name:        h.key.Name,
			SizeBytes:   h.sizeBytes,
			Device:      h.device,
			Priority:    h.priority,
			AccessCount: h.accessCount,
			IdleSeconds: int64(now.Sub(h.lastAccess).Seconds()),
		})
	}
	return snap
}
