package provider

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text worth running detection on; shorter
// outputs give unreliable results and are left unannotated.
const minDetectRunes = 20

// LanguageAnnotator fills Result.Language from recognized text using lingua.
// Detector construction loads language models, so it happens lazily on first
// use and is shared by all callers.
type LanguageAnnotator struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

func NewLanguageAnnotator() *LanguageAnnotator { return &LanguageAnnotator{} }

func (a *LanguageAnnotator) init() {
	a.detector = lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.German, lingua.French, lingua.Spanish,
			lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Russian,
			lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Arabic,
		).
		Build()
}

// Detect returns the ISO 639-1 code of the dominant language of text, or ""
// when the text is too short or detection is inconclusive.
func (a *LanguageAnnotator) Detect(text string) string {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minDetectRunes {
		return ""
	}
	a.once.Do(a.init)
	lang, ok := a.detector.DetectLanguageOf(trimmed)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
