// Package classifier derives a coarse document classification from an
// artifact's raster: document kind, layout complexity, image quality, and an
// ordered list of engines likely to perform best on it.
package classifier

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rs/zerolog"

	"ocrd/internal/metrics"
	"ocrd/pkg/types"
)

// maxAnalyzeEdge caps the raster size fed into feature extraction; larger
// images are downscaled first. Feature statistics are scale-invariant enough
// that this only trades precision for latency.
const maxAnalyzeEdge = 1024

// Complexity is a weighted blend of text density and layout variance.
const (
	complexityDensityWeight = 0.6
	complexityLayoutWeight  = 0.4
)

// Quality blends blur, noise, and inverse contrast; lower is better.
const (
	qualityBlurWeight     = 0.4
	qualityNoiseWeight    = 0.3
	qualityContrastWeight = 0.3
)

// Classifier analyzes artifacts. Safe for concurrent use; it holds no mutable
// state. Analyze is CPU-bound and can take tens of milliseconds on large
// artifacts, so high-volume callers should run it on a bounded worker pool.
type Classifier struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Classifier {
	return &Classifier{log: log}
}

// fallback is the safe default verdict used whenever feature extraction
// fails. Analyze never propagates an error.
func fallback(reason string) types.Classification {
	return types.Classification{
		Kind:               types.KindPrintedText,
		Complexity:         types.ComplexityModerate,
		Quality:            types.QualityGood,
		RecommendedEngines: []string{types.EngineAuto},
		Err:                reason,
	}
}

// Analyze classifies one artifact. It is a total function: any decode or
// extraction failure degrades to the default classification with Err set.
func (c *Classifier) Analyze(artifact types.Artifact) (out types.Classification) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Str("artifact", artifact.ID).Msg("classifier recovered")
			metrics.IncClassifierFailure()
			out = fallback(fmt.Sprint(r))
		}
	}()

	if len(artifact.Data) == 0 {
		metrics.IncClassifierFailure()
		return fallback("empty artifact")
	}
	src, _, err := image.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		c.log.Debug().Err(err).Str("artifact", artifact.ID).Msg("classifier decode failed")
		metrics.IncClassifierFailure()
		return fallback("decode: " + err.Error())
	}

	feats := c.Extract(src, artifact)
	kind := evaluateRules(feats)
	complexity := evaluateComplexity(feats)
	quality := evaluateQuality(feats)
	rec := recommend(kind, quality)

	c.log.Debug().
		Str("artifact", artifact.ID).
		Str("kind", string(kind)).
		Str("complexity", string(complexity)).
		Str("quality", string(quality)).
		Strs("engines", rec).
		Msg("classifier verdict")

	return types.Classification{
		Kind:               kind,
		Complexity:         complexity,
		Quality:            quality,
		RecommendedEngines: rec,
	}
}

// Extract computes the full feature set for a decoded raster. Exposed for
// rule tuning and tests.
func (c *Classifier) Extract(src image.Image, artifact types.Artifact) Features {
	src = downscale(src, maxAnalyzeEdge)
	gray := toGray(src)
	thresh := inkThreshold(gray)
	b := gray.Bounds()

	f := Features{
		TextDensity:    textDensity(gray, thresh),
		TableScore:     tableScore(gray, thresh),
		FormScore:      formScore(gray, thresh),
		ColorVariance:  colorVariance(src),
		BlurScore:      blurScore(gray),
		NoiseScore:     noiseScore(gray),
		ContrastScore:  contrastScore(gray),
		ColumnCount:    columnCount(gray, thresh),
		LayoutVariance: layoutVariance(gray, thresh),
		LanguageHints:  len(artifact.Languages),
	}
	if b.Dx() > 0 {
		f.AspectRatio = float64(b.Dy()) / float64(b.Dx())
	}
	return f
}

func evaluateComplexity(f Features) types.Complexity {
	score := complexityDensityWeight*f.TextDensity + complexityLayoutWeight*f.LayoutVariance
	switch {
	case score > 0.7:
		return types.ComplexityVeryComplex
	case score > 0.5:
		return types.ComplexityComplex
	case score > 0.3:
		return types.ComplexityModerate
	default:
		return types.ComplexitySimple
	}
}

func evaluateQuality(f Features) types.Quality {
	score := qualityBlurWeight*f.BlurScore +
		qualityNoiseWeight*f.NoiseScore +
		qualityContrastWeight*(1-f.ContrastScore)
	switch {
	case score > 0.7:
		return types.QualityVeryPoor
	case score > 0.5:
		return types.QualityPoor
	case score > 0.3:
		return types.QualityFair
	case score > 0.15:
		return types.QualityGood
	default:
		return types.QualityExcellent
	}
}

// downscale shrinks src so its longest edge is at most maxEdge.
func downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, src, b.Min, draw.Src)
	return g
}
