// Package provider defines the recognition engine contract consumed by the
// registry. Engines can be backed by local binaries, native libraries, or
// remote APIs; the interface keeps provider-specific concerns out of callers.
package provider

import (
	"context"

	"ocrd/pkg/types"
)

// Engine is the capability provider contract: one artifact in, one result out.
type Engine interface {
	Name() string
	// IsAvailable reports whether the engine can take work right now.
	IsAvailable() bool
	// Recognize runs recognition on the artifact, optionally restricted to a
	// sub-region. Implementations must honor ctx cancellation best-effort.
	Recognize(ctx context.Context, artifact types.Artifact, mode types.Mode, region *types.Region) (types.Result, error)
	// Info returns static capability metadata.
	Info() types.EngineInfo
}

// ConstructFunc builds an engine. Construction may be expensive and may fail;
// the registry turns a failure into an unavailable placeholder entry.
type ConstructFunc func() (Engine, error)
