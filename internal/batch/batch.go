// Package batch runs many processing requests with bounded concurrency. Each
// item succeeds or fails on its own; one failure never cancels siblings
// unless the caller asks for fail-fast semantics.
package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ocrd/internal/registry"
	"ocrd/internal/selector"
	"ocrd/pkg/types"
)

const defaultWorkers = 4

// Item is one unit of batch work.
type Item struct {
	// ID correlates the result; filled with a fresh UUID when empty.
	ID      string
	Request types.ProcessRequest
}

// ItemResult pairs an item's ID with its outcome.
type ItemResult struct {
	ID     string
	Result types.Result
	Err    error
}

// Config tunes the processor.
type Config struct {
	// Workers bounds simultaneous dispatches; defaults to 4.
	Workers int
	// FailFast cancels remaining items after the first failure.
	FailFast bool
}

// Processor fans items out over the registry.
type Processor struct {
	reg      *registry.Registry
	sel      *selector.Selector
	workers  int
	failFast bool
	log      zerolog.Logger
}

func New(reg *registry.Registry, sel *selector.Selector, cfg Config, log zerolog.Logger) *Processor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Processor{reg: reg, sel: sel, workers: workers, failFast: cfg.FailFast, log: log}
}

// Run processes all items and returns results in input order. Items that were
// never started because of cancellation report the context error.
func (p *Processor) Run(ctx context.Context, items []Item) []ItemResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]ItemResult, len(items))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i := range items {
		item := items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		results[i].ID = item.ID

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		}

		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := p.reg.Process(ctx, p.sel, item.Request)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				p.log.Warn().Err(err).Str("item", item.ID).Msg("batch item failed")
				if p.failFast {
					cancel()
				}
			}
		}(i, item)
	}
	wg.Wait()
	return results
}
