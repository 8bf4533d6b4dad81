package classifier

import "ocrd/pkg/types"

// maxRecommendations caps the engine list handed to the selector.
const maxRecommendations = 3

// kindRecommendations maps each document kind to engines that historically do
// well on it, best first.
var kindRecommendations = map[types.DocumentKind][]string{
	types.KindPrintedText:  {"tesseract", "paddleocr", "easyocr"},
	types.KindHandwriting:  {"trocr", "easyocr"},
	types.KindScanned:      {"paddleocr", "tesseract", "easyocr"},
	types.KindReceipt:      {"paddleocr", "easyocr", "tesseract"},
	types.KindForm:         {"paddleocr", "tesseract"},
	types.KindTable:        {"paddleocr", "tesseract"},
	types.KindMixedContent: {"paddleocr", "easyocr", "tesseract"},
	types.KindMathematical: {"trocr", "tesseract"},
	types.KindComic:        {"easyocr", "paddleocr"},
	types.KindMultilingual: {"easyocr", "paddleocr", "tesseract"},
	types.KindHistorical:   {"trocr", "easyocr"},
}

// generalists are robust engines prepended when image quality is poor; they
// degrade more gracefully than the specialists.
var generalists = []string{"paddleocr", "easyocr"}

// recommend produces the ordered, deduplicated engine list for a verdict,
// truncated to maxRecommendations. An empty table entry degrades to ["auto"].
func recommend(kind types.DocumentKind, quality types.Quality) []string {
	base := kindRecommendations[kind]
	var merged []string
	if quality == types.QualityPoor || quality == types.QualityVeryPoor {
		merged = append(merged, generalists...)
	}
	merged = append(merged, base...)

	seen := make(map[string]struct{}, len(merged))
	out := make([]string, 0, maxRecommendations)
	for _, name := range merged {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == maxRecommendations {
			break
		}
	}
	if len(out) == 0 {
		return []string{types.EngineAuto}
	}
	return out
}
