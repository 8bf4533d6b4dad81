package pool

import (
	"encoding/json"
	"os"
	"sort"
	"time"
)

type recencyRecord struct {
	LastAccessUnix int64  `json:"last_access_unix"`
	SizeBytes      uint64 `json:"size_bytes"`
	Priority       int    `json:"priority"`
}

// loadRecencyMetadata reads the persisted per-key recency snapshot, if any.
// Best-effort: a missing or malformed file leaves the pool cold.
func (p *Pool) loadRecencyMetadata() {
	if p.recencyPath == "" {
		return
	}
	f, err := os.Open(p.recencyPath)
	if err != nil {
		return
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	var data map[string]recencyRecord
	if err := dec.Decode(&data); err == nil {
		p.recencyMeta = data
	}
}

// SaveRecencyMetadata snapshots per-key recency so a restarted process can
// warm the same set. Best-effort; write failures are ignored.
func (p *Pool) SaveRecencyMetadata() {
	if p.recencyPath == "" {
		return
	}
	p.mu.Lock()
	snap := make(map[string]recencyRecord, len(p.entries))
	for _, h := range p.entries {
		snap[h.key.String()] = recencyRecord{
			LastAccessUnix: h.lastAccess.Unix(),
			SizeBytes:      h.sizeBytes,
			Priority:       h.priority,
		}
	}
	p.mu.Unlock()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(p.recencyPath, b, 0o644)
}

// RecentKeys returns persisted keys ordered most recently used first, for
// callers deciding what to preload after a restart.
func (p *Pool) RecentKeys() []string {
	if len(p.recencyMeta) == 0 {
		return nil
	}
	type rec struct {
		key  string
		last time.Time
	}
	out := make([]rec, 0, len(p.recencyMeta))
	for k, r := range p.recencyMeta {
		out = append(out, rec{key: k, last: time.Unix(r.LastAccessUnix, 0)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].last.After(out[j].last) })
	keys := make([]string, len(out))
	for i, r := range out {
		keys[i] = r.key
	}
	return keys
}
