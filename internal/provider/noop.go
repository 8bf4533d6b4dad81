package provider

import (
	"context"

	"ocrd/pkg/types"
)

// NoopEngine returns empty results. It is the engine of last resort and keeps
// pipelines runnable on hosts with no OCR backend installed.
type NoopEngine struct{}

func NewNoopEngine() (Engine, error) { return NoopEngine{}, nil }

func (NoopEngine) Name() string { return "noop" }

func (NoopEngine) IsAvailable() bool { return true }

func (NoopEngine) Recognize(ctx context.Context, artifact types.Artifact, mode types.Mode, region *types.Region) (types.Result, error) {
	if err := ctx.Err(); err != nil {
		return types.Result{}, err
	}
	return types.Result{ArtifactID: artifact.ID, Engine: "noop"}, nil
}

func (NoopEngine) Info() types.EngineInfo {
	return types.EngineInfo{
		Name:        "noop",
		Modes:       []types.Mode{types.ModeText},
		Available:   true,
		Strengths:   "always available",
		Limitations: "produces no text",
	}
}
