package registry

import (
	"context"
	"errors"
	"time"

	"ocrd/internal/metrics"
	"ocrd/internal/selector"
	"ocrd/pkg/types"
)

// Select resolves a request's engine name through the adaptive selector. sel
// is owned by the caller and constructed with this registry as its
// Availability; passing it in keeps the dependency direction one-way.
func (r *Registry) Select(sel *selector.Selector, req types.ProcessRequest) (string, error) {
	var artifact *types.Artifact
	if len(req.Artifact.Data) > 0 {
		artifact = &req.Artifact
	}
	return sel.Select(req.Engine, artifact)
}

// Dispatch forwards a processing request to the named engine. The call can
// block for the engine's full processing duration; callers control it through
// ctx. On cancellation the engine is asked to abort best-effort and the error
// satisfies IsCancelled. Engine-local failures come back wrapped with the
// engine name and satisfy IsProcessingError.
func (r *Registry) Dispatch(ctx context.Context, name string, artifact types.Artifact, mode types.Mode, region *types.Region) (types.Result, error) {
	eng, err := r.lookup(name)
	if err != nil {
		metrics.ObserveDispatch(name, "not_found", 0)
		return types.Result{}, err
	}
	if mode == "" {
		mode = types.ModeText
	}

	r.log.Debug().Str("engine", name).Str("artifact", artifact.ID).Str("mode", string(mode)).Msg("dispatch start")
	start := time.Now()
	res, err := eng.Recognize(ctx, artifact, mode, region)
	dur := time.Since(start)
	if err != nil {
		// Classify by the engine's own error chain: an engine-local failure
		// that happens to coincide with a deadline expiry is still a failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.ObserveDispatch(name, "cancelled", dur)
			r.log.Warn().Str("engine", name).Str("artifact", artifact.ID).Msg("dispatch cancelled")
			return types.Result{}, processingError{engine: name, cause: err}
		}
		metrics.ObserveDispatch(name, "error", dur)
		r.log.Error().Err(err).Str("engine", name).Str("artifact", artifact.ID).Msg("dispatch failed")
		return types.Result{}, processingError{engine: name, cause: err}
	}

	res.Engine = name
	res.Duration = dur
	if res.ArtifactID == "" {
		res.ArtifactID = artifact.ID
	}
	if res.Language == "" && r.annotator != nil {
		res.Language = r.annotator.Detect(res.PlainText)
	}
	metrics.ObserveDispatch(name, "ok", dur)
	r.log.Info().Str("engine", name).Str("artifact", artifact.ID).Dur("dur", dur).Msg("dispatch done")
	return res, nil
}

// Process is the convenience path used by the CLI and batch layer: select,
// then dispatch.
func (r *Registry) Process(ctx context.Context, sel *selector.Selector, req types.ProcessRequest) (types.Result, error) {
	name, err := r.Select(sel, req)
	if err != nil {
		return types.Result{}, err
	}
	return r.Dispatch(ctx, name, req.Artifact, req.Mode, req.Region)
}
