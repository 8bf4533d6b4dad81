package pool

import (
	"context"
	"io"
)

// LoaderFunc builds the backing resource for one preload candidate. It runs
// outside the pool lock and may take seconds.
type LoaderFunc func(ctx context.Context, name string) (resource any, sizeBytes uint64, err error)

// PreloadCandidate names one resource to warm ahead of demand.
type PreloadCandidate struct {
	Owner    string
	Name     string
	Device   string
	Priority int
}

// Preload warms a set of high-priority resources best-effort. A failure for
// one candidate is logged and skipped; it never aborts the remaining
// candidates. Candidates already resident are only touched. Returns the
// number of resources actually loaded.
func (p *Pool) Preload(ctx context.Context, candidates []PreloadCandidate, load LoaderFunc) int {
	loaded := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Err(err).Msg("pool preload aborted")
			return loaded
		}
		if _, ok := p.Get(c.Owner, c.Name); ok {
			continue
		}
		res, size, err := load(ctx, c.Name)
		if err != nil {
			p.log.Warn().Err(err).Str("owner", c.Owner).Str("name", c.Name).Msg("pool preload candidate failed")
			p.publisher.Publish(Event{Name: "preload_failed", Key: Key{Owner: c.Owner, Name: c.Name}, Fields: map[string]any{"error": err.Error()}})
			continue
		}
		_, displaced := p.Register(c.Owner, c.Name, res, c.Device, c.Priority, size)
		if displaced != nil {
			// Lost a Register race for the same key; the fresh handle stands
			// and the displaced reference is released here.
			if closer, ok := displaced.(io.Closer); ok {
				_ = closer.Close()
			}
			p.log.Debug().Str("owner", c.Owner).Str("name", c.Name).Msg("pool preload displaced concurrent load")
		}
		loaded++
	}
	return loaded
}
