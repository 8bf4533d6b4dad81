package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const mb = 1 << 20

// helper: build a pool with a byte budget and protect threshold.
func newTestPool(t *testing.T, budget uint64, protect int) *Pool {
	t.Helper()
	return New(Config{
		BudgetBytes:      budget,
		ProtectThreshold: protect,
		Logger:           zerolog.Nop(),
	})
}

// helper: force a handle's last-access time for deterministic ordering.
func setLastAccess(t *testing.T, p *Pool, owner, name string, when time.Time) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.entries[Key{Owner: owner, Name: name}]
	if !ok {
		t.Fatalf("no entry for %s/%s", owner, name)
	}
	h.lastAccess = when
}

func TestRegisterGetRoundTrip(t *testing.T) {
	p := newTestPool(t, 0, 8)
	resource := &struct{ v int }{v: 42}
	p.Register("ocr", "model-a", resource, "gpu0", 1, 10*mb)

	before := time.Now()
	got, ok := p.Get("ocr", "model-a")
	if !ok {
		t.Fatalf("expected hit for registered key")
	}
	if got != resource {
		t.Fatalf("expected the exact registered resource reference back")
	}

	p.mu.Lock()
	h := p.entries[Key{Owner: "ocr", Name: "model-a"}]
	last, count := h.lastAccess, h.accessCount
	p.mu.Unlock()
	if last.Before(before) {
		t.Fatalf("expected last-access to move forward: %v < %v", last, before)
	}
	if count != 1 {
		t.Fatalf("expected access count 1, got %d", count)
	}

	// Second get moves it strictly forward again.
	setLastAccess(t, p, "ocr", "model-a", before.Add(-time.Hour))
	if _, ok := p.Get("ocr", "model-a"); !ok {
		t.Fatalf("expected hit")
	}
	p.mu.Lock()
	last2 := p.entries[Key{Owner: "ocr", Name: "model-a"}].lastAccess
	p.mu.Unlock()
	if !last2.After(before.Add(-time.Hour)) {
		t.Fatalf("expected last-access bumped forward")
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	p := newTestPool(t, 0, 8)
	if _, ok := p.Get("ocr", "never-registered"); ok {
		t.Fatalf("expected miss")
	}
}

func TestUnloadAbsentKeyIsIdempotent(t *testing.T) {
	p := newTestPool(t, 100*mb, 8)
	before := p.Stats()
	if p.Unload("ocr", "ghost", false) {
		t.Fatalf("unload of absent key must return false")
	}
	after := p.Stats()
	if before != after {
		t.Fatalf("stats changed by unloading absent key: %+v -> %+v", before, after)
	}
}

func TestUnloadRefusesProtectedWithoutForce(t *testing.T) {
	p := newTestPool(t, 0, 5)
	p.Register("ocr", "pinned", "res", "gpu0", 5, 10*mb)

	if p.Unload("ocr", "pinned", false) {
		t.Fatalf("expected refusal for protected entry")
	}
	if _, ok := p.Get("ocr", "pinned"); !ok {
		t.Fatalf("protected entry must survive refused unload")
	}
	if !p.Unload("ocr", "pinned", true) {
		t.Fatalf("expected forced unload to succeed")
	}
	if _, ok := p.Get("ocr", "pinned"); ok {
		t.Fatalf("entry must be gone after forced unload")
	}
}

func TestReplaceReturnsDisplacedResource(t *testing.T) {
	p := newTestPool(t, 0, 8)
	first := "first"
	p.Register("ocr", "model", first, "gpu0", 1, mb)
	_, displaced := p.Register("ocr", "model", "second", "gpu0", 1, mb)
	if displaced != any(first) {
		t.Fatalf("expected the displaced first resource back, got %v", displaced)
	}
	got, _ := p.Get("ocr", "model")
	if got != any("second") {
		t.Fatalf("last writer must win, got %v", got)
	}
}

func TestOptimizeEvictsByPriorityThenRecency(t *testing.T) {
	p := newTestPool(t, 1000*mb, 8)
	base := time.Now().Add(-time.Hour)
	p.Register("ocr", "low-old", "a", "gpu0", 1, 100*mb)
	p.Register("ocr", "low-new", "b", "gpu0", 1, 100*mb)
	p.Register("ocr", "high-old", "c", "gpu0", 2, 100*mb)
	setLastAccess(t, p, "ocr", "low-old", base)
	setLastAccess(t, p, "ocr", "low-new", base.Add(10*time.Minute))
	setLastAccess(t, p, "ocr", "high-old", base)

	// 700MB free already; asking for 800MB leaves a 100MB deficit so exactly
	// one eviction runs.
	freed := p.Optimize(800 * mb)
	if freed != 100*mb {
		t.Fatalf("expected 100MB freed, got %d", freed)
	}
	if _, ok := p.Get("ocr", "low-old"); ok {
		t.Fatalf("lowest priority + oldest must be evicted first")
	}
	if _, ok := p.Get("ocr", "low-new"); !ok {
		t.Fatalf("newer low-priority entry must survive a single eviction")
	}
	if _, ok := p.Get("ocr", "high-old"); !ok {
		t.Fatalf("higher priority entry must survive even though it is old")
	}
}

func TestOptimizeEqualRecencyPrefersLowerPriority(t *testing.T) {
	p := newTestPool(t, 1000*mb, 8)
	when := time.Now().Add(-time.Hour)
	p.Register("ocr", "p2", "x", "gpu0", 2, 100*mb)
	p.Register("ocr", "p1", "y", "gpu0", 1, 100*mb)
	setLastAccess(t, p, "ocr", "p1", when)
	setLastAccess(t, p, "ocr", "p2", when)

	// 800MB free; a 900MB target forces exactly one eviction.
	if freed := p.Optimize(900 * mb); freed != 100*mb {
		t.Fatalf("expected one eviction, freed %d", freed)
	}
	if _, ok := p.Get("ocr", "p1"); ok {
		t.Fatalf("priority 1 must be evicted strictly before priority 2")
	}
	if _, ok := p.Get("ocr", "p2"); !ok {
		t.Fatalf("priority 2 must survive")
	}
}

func TestOptimizeNoopWhenFreeAlreadyMeetsTarget(t *testing.T) {
	p := newTestPool(t, 1000*mb, 8)
	p.Register("ocr", "small", "x", "gpu0", 1, 100*mb)
	if freed := p.Optimize(500 * mb); freed != 0 {
		t.Fatalf("expected no-op when free >= target, freed %d", freed)
	}
	if _, ok := p.Get("ocr", "small"); !ok {
		t.Fatalf("entry must be untouched by a no-op optimize")
	}
}

// The canonical three-handle scenario: Optimize frees the minimum prefix of
// the ordered eviction list and never touches the protected handle.
func TestOptimizeThreeHandleScenario(t *testing.T) {
	p := newTestPool(t, 1000*mb, 3)
	base := time.Now().Add(-time.Hour)
	p.Register("ocr", "a", "a", "gpu0", 1, 100*mb)
	p.Register("ocr", "b", "b", "gpu0", 1, 200*mb)
	p.Register("ocr", "c", "c", "gpu0", 3, 50*mb)
	setLastAccess(t, p, "ocr", "a", base)
	setLastAccess(t, p, "ocr", "b", base.Add(10*time.Minute))
	setLastAccess(t, p, "ocr", "c", base)

	// 650MB free; an 800MB target leaves a 150MB deficit.
	freed := p.Optimize(800 * mb)
	if freed != 300*mb {
		t.Fatalf("expected 300MB freed (100MB alone is short of the target), got %d", freed)
	}
	if _, ok := p.Get("ocr", "a"); ok {
		t.Fatalf("100MB LRU handle must be evicted first")
	}
	if _, ok := p.Get("ocr", "b"); ok {
		t.Fatalf("200MB handle must be evicted to reach the target")
	}
	if _, ok := p.Get("ocr", "c"); !ok {
		t.Fatalf("protected 50MB handle must never be touched")
	}
}

func TestOptimizeNeverTouchesProtectedEvenWhenShort(t *testing.T) {
	p := newTestPool(t, 100*mb, 3)
	p.Register("ocr", "pinned", "x", "gpu0", 3, 100*mb)
	freed := p.Optimize(50 * mb)
	if freed != 0 {
		t.Fatalf("expected zero freed with only protected entries, got %d", freed)
	}
	if _, ok := p.Get("ocr", "pinned"); !ok {
		t.Fatalf("protected entry must remain resident")
	}
}

func TestRegisterPressureTriggersOptimize(t *testing.T) {
	p := newTestPool(t, 1000*mb, 8)
	base := time.Now().Add(-time.Hour)
	p.Register("ocr", "old", "a", "gpu0", 1, 400*mb)
	setLastAccess(t, p, "ocr", "old", base)
	p.Register("ocr", "mid", "b", "gpu0", 1, 400*mb)

	// 800/1000 = 80%: below the 85% trigger, nothing evicted yet.
	if _, ok := p.Get("ocr", "old"); !ok {
		t.Fatalf("no eviction expected below the pressure threshold")
	}
	setLastAccess(t, p, "ocr", "old", base)

	// 900/1000 = 90% crosses the trigger; target is 15% of capacity.
	p.Register("ocr", "new", "c", "gpu0", 1, 100*mb)
	if _, ok := p.Get("ocr", "old"); ok {
		t.Fatalf("pressure check must evict the LRU entry")
	}
	if _, ok := p.Get("ocr", "new"); !ok {
		t.Fatalf("freshly registered entry must stay resident")
	}
}

func TestCleanupIdle(t *testing.T) {
	p := newTestPool(t, 0, 5)
	base := time.Now()
	p.Register("ocr", "stale", "a", "gpu0", 1, mb)
	p.Register("ocr", "fresh", "b", "gpu0", 1, mb)
	p.Register("ocr", "stale-protected", "c", "gpu0", 5, mb)
	setLastAccess(t, p, "ocr", "stale", base.Add(-2*time.Hour))
	setLastAccess(t, p, "ocr", "stale-protected", base.Add(-2*time.Hour))

	removed := p.CleanupIdle(time.Hour)
	if removed != 1 {
		t.Fatalf("expected exactly one removal, got %d", removed)
	}
	if _, ok := p.Get("ocr", "stale"); ok {
		t.Fatalf("stale entry must be removed")
	}
	if _, ok := p.Get("ocr", "fresh"); !ok {
		t.Fatalf("fresh entry must survive")
	}
	if _, ok := p.Get("ocr", "stale-protected"); !ok {
		t.Fatalf("protected entry must survive idle cleanup")
	}
}

func TestStatsCombinesTelemetryAndResidency(t *testing.T) {
	p := New(Config{
		Telemetry: fakeTelemetry{total: 1000 * mb, used: 50 * mb},
		Logger:    zerolog.Nop(),
	})
	p.Register("ocr", "model", "x", "gpu0", 1, 200*mb)

	s := p.Stats()
	if s.TotalBytes != 1000*mb {
		t.Fatalf("expected telemetry total, got %d", s.TotalBytes)
	}
	// Resident sum exceeds the device-reported figure and wins.
	if s.UsedBytes != 200*mb {
		t.Fatalf("expected used 200MB, got %d", s.UsedBytes)
	}
	if s.FreeBytes != 800*mb {
		t.Fatalf("expected free 800MB, got %d", s.FreeBytes)
	}
	if s.UtilizationPercent < 19.9 || s.UtilizationPercent > 20.1 {
		t.Fatalf("expected ~20%% utilization, got %f", s.UtilizationPercent)
	}
}

type fakeTelemetry struct{ total, used uint64 }

func (f fakeTelemetry) PoolStats() (uint64, uint64, uint64) {
	return f.total, f.used, f.total - f.used
}

func TestEventsPublished(t *testing.T) {
	pub := NewMemoryPublisher()
	p := New(Config{BudgetBytes: 100 * mb, Publisher: pub, Logger: zerolog.Nop()})
	p.Register("ocr", "model", "x", "gpu0", 1, 10*mb)
	p.Unload("ocr", "model", false)

	names := make(map[string]bool)
	for _, e := range pub.Events() {
		names[e.Name] = true
	}
	if !names["register"] || !names["unload"] {
		t.Fatalf("expected register and unload events, got %v", names)
	}
}

func TestSnapshotListsResidents(t *testing.T) {
	p := newTestPool(t, 0, 8)
	p.Register("ocr", "model", "x", "gpu1", 2, 5*mb)
	snap := p.Snapshot()
	if len(snap.Resident) != 1 {
		t.Fatalf("expected one resident, got %d", len(snap.Resident))
	}
	r := snap.Resident[0]
	if r.Owner != "ocr" || r.Name != "model" || r.Device != "gpu1" || r.Priority != 2 || r.SizeBytes != 5*mb {
		t.Fatalf("unexpected resident projection: %+v", r)
	}
}

// closeRecorder verifies the pool closes evicted resources that support it.
type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error { c.closed = true; return nil }

// Exercised under the race detector: a hit must hand back the resource
// captured while the entry was still resident, never a reference the release
// path has since dropped.
func TestGetIsSafeAgainstConcurrentUnload(t *testing.T) {
	p := newTestPool(t, 0, 8)
	for round := 0; round < 200; round++ {
		p.Register("ocr", "model", &closeRecorder{}, "gpu0", 1, mb)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				res, ok := p.Get("ocr", "model")
				if ok && res == nil {
					t.Errorf("hit returned a nil resource")
					return
				}
			}
		}()
		p.Unload("ocr", "model", false)
		wg.Wait()
	}
}

func TestUnloadClosesClosableResources(t *testing.T) {
	p := newTestPool(t, 0, 8)
	res := &closeRecorder{}
	p.Register("ocr", "model", res, "gpu0", 1, mb)
	if !p.Unload("ocr", "model", false) {
		t.Fatalf("expected unload to succeed")
	}
	if !res.closed {
		t.Fatalf("expected resource Close to be called on unload")
	}
}
