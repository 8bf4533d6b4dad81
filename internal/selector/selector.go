// Package selector resolves "auto" or explicit engine requests into a
// concrete, currently-available engine name. Classification drives the first
// choice but is never required: the static preference order always backs it
// up, and only an empty registry yields an error.
package selector

import (
	"github.com/rs/zerolog"

	"ocrd/internal/classifier"
	"ocrd/internal/metrics"
	"ocrd/pkg/types"
)

// Availability answers whether a named engine can take work right now. The
// registry implements it.
type Availability interface {
	IsAvailable(name string) bool
}

// defaultAliases maps the short names users type to canonical engine names.
var defaultAliases = map[string]string{
	"tess":   "tesseract",
	"paddle": "paddleocr",
	"easy":   "easyocr",
	"ocr":    types.EngineAuto,
	"":       types.EngineAuto,
}

// defaultPreference is the static fallback order: most capable and
// general-purpose engines first, most restrictive last.
var defaultPreference = []string{"paddleocr", "easyocr", "tesseract", "trocr", "noop"}

// Config carries the externally-loaded alias table and preference order.
// Zero values fall back to package defaults.
type Config struct {
	Aliases    map[string]string
	Preference []string
}

// Selector wraps the classifier with the two-tier fallback policy.
type Selector struct {
	classifier *classifier.Classifier
	avail      Availability
	aliases    map[string]string
	preference []string
	log        zerolog.Logger
}

func New(c *classifier.Classifier, avail Availability, cfg Config, log zerolog.Logger) *Selector {
	s := &Selector{
		classifier: c,
		avail:      avail,
		aliases:    cfg.Aliases,
		preference: cfg.Preference,
		log:        log,
	}
	if len(s.aliases) == 0 {
		s.aliases = defaultAliases
	}
	if len(s.preference) == 0 {
		s.preference = defaultPreference
	}
	return s
}

// Normalize maps a requested name through the alias table.
func (s *Selector) Normalize(name string) string {
	if canonical, ok := s.aliases[name]; ok {
		return canonical
	}
	return name
}

// Select resolves a request into an available engine name. artifact may be
// nil; classification is then skipped and the static preference order decides.
func (s *Selector) Select(requested string, artifact *types.Artifact) (string, error) {
	name := s.Normalize(requested)

	if name != types.EngineAuto {
		if s.avail.IsAvailable(name) {
			return name, nil
		}
		// Requested engine is unknown or down: downgrade to auto-selection
		// rather than failing the request.
		s.log.Warn().Str("requested", name).Msg("selector downgrade: requested engine unavailable")
		metrics.IncSelectorFallback("requested_unavailable")
	}

	if artifact != nil {
		verdict := s.classifier.Analyze(*artifact)
		for _, candidate := range verdict.RecommendedEngines {
			if candidate == types.EngineAuto {
				continue
			}
			if s.avail.IsAvailable(candidate) {
				s.log.Debug().Str("engine", candidate).Str("kind", string(verdict.Kind)).Msg("selector classified pick")
				return candidate, nil
			}
		}
		metrics.IncSelectorFallback("recommendations_unavailable")
	} else {
		metrics.IncSelectorFallback("no_artifact")
	}

	for _, candidate := range s.preference {
		if s.avail.IsAvailable(candidate) {
			s.log.Debug().Str("engine", candidate).Msg("selector static pick")
			return candidate, nil
		}
	}
	return "", noEngineAvailableError{}
}
