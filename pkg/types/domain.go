package types

import "time"

// Mode selects the kind of output a recognition engine should produce.
type Mode string

const (
	ModeText        Mode = "text"
	ModeLayout      Mode = "layout"
	ModeTable       Mode = "table"
	ModeHandwriting Mode = "handwriting"
)

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Artifact is a single document image submitted for classification or
// recognition.
type Artifact struct {
	// Optional caller-provided identifier, echoed back in the Result.
	ID string `json:"id,omitempty"`
	// Encoded image payload.
	Data []byte `json:"-"`
	// Content type of Data (e.g. image/png). Empty means "sniff it".
	Format string `json:"format,omitempty"`
	// Effective dots-per-inch; zero means unknown.
	DPI int `json:"dpi,omitempty"`
	// Language hints (ISO 639 codes) for engines that use trained data.
	Languages []string `json:"languages,omitempty"`
}

// TextWord is a single recognized token.
type TextWord struct {
	Text       string  `json:"text"`
	Bounds     Region  `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// TextBlock aggregates recognized words that form a logical block.
type TextBlock struct {
	Text       string     `json:"text"`
	Bounds     Region     `json:"bounds"`
	Words      []TextWord `json:"words,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Result is the output of one recognition call.
type Result struct {
	// ArtifactID mirrors the Artifact.ID that produced this result.
	ArtifactID string `json:"artifact_id,omitempty"`
	// Engine that produced the result.
	Engine string `json:"engine"`
	// Linearized text extracted from the image.
	PlainText string `json:"plain_text"`
	// Structured layout with positional metadata, when the engine provides it.
	Blocks []TextBlock `json:"blocks,omitempty"`
	// Mean word confidence in [0,1]; zero when the engine reports none.
	Confidence float64 `json:"confidence"`
	// Dominant language of the recognized text, if known (ISO 639-1).
	Language string `json:"language,omitempty"`
	// Wall-clock processing duration.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// DocumentKind is the coarse document category derived by the classifier.
type DocumentKind string

const (
	KindPrintedText  DocumentKind = "printed_text"
	KindHandwriting  DocumentKind = "handwriting"
	KindScanned      DocumentKind = "scanned"
	KindReceipt      DocumentKind = "receipt"
	KindForm         DocumentKind = "form"
	KindTable        DocumentKind = "table"
	KindMixedContent DocumentKind = "mixed_content"
	KindMathematical DocumentKind = "mathematical"
	KindComic        DocumentKind = "comic"
	KindMultilingual DocumentKind = "multilingual"
	KindHistorical   DocumentKind = "historical"
)

// Complexity grades how hard a document's layout is to recognize.
type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

// Quality grades the visual condition of the input image.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityVeryPoor  Quality = "very_poor"
)

// Classification is the classifier's verdict for one artifact.
type Classification struct {
	Kind       DocumentKind `json:"kind"`
	Complexity Complexity   `json:"complexity"`
	Quality    Quality      `json:"quality"`
	// Ordered engine recommendations, best first, at most three entries.
	// Never empty: when nothing matched it contains the single entry "auto".
	RecommendedEngines []string `json:"recommended_engines"`
	// Non-empty when feature extraction failed and the rest of the fields
	// are the safe defaults.
	Err string `json:"error,omitempty"`
}

// EngineInfo describes one registered recognition engine.
type EngineInfo struct {
	Name        string   `json:"name"`
	Modes       []Mode   `json:"modes,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Accelerated bool     `json:"accelerated"`
	Strengths   string   `json:"strengths,omitempty"`
	Limitations string   `json:"limitations,omitempty"`
	// Available is false for engines whose construction failed; Reason then
	// carries the failure message.
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// PoolStats is a point-in-time view of accelerator memory accounting.
type PoolStats struct {
	TotalBytes         uint64  `json:"total_bytes"`
	UsedBytes          uint64  `json:"used_bytes"`
	FreeBytes          uint64  `json:"free_bytes"`
	UtilizationPercent float64 `json:"utilization_percent"`
}
