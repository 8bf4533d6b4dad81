package classifier

import "ocrd/pkg/types"

// rule maps a feature combination to a document kind. The table is ordered
// and the first matching rule wins, so rule order is part of the contract:
// reordering changes classification for artifacts matching several rules.
type rule struct {
	name  string
	kind  types.DocumentKind
	match func(Features) bool
}

// kindRules is evaluated top to bottom. Thresholds are tuning knobs, not
// invariants; the ordering is what tests pin down.
var kindRules = []rule{
	{
		name: "multilingual-hints",
		kind: types.KindMultilingual,
		match: func(f Features) bool {
			return f.LanguageHints > 1
		},
	},
	{
		name: "receipt",
		kind: types.KindReceipt,
		match: func(f Features) bool {
			return f.AspectRatio > 2.2 && f.TextDensity > 0.45
		},
	},
	{
		name: "table",
		kind: types.KindTable,
		match: func(f Features) bool {
			return f.TableScore > 0.55
		},
	},
	{
		name: "form",
		kind: types.KindForm,
		match: func(f Features) bool {
			return f.FormScore > 0.5 && f.TableScore <= 0.55
		},
	},
	{
		name: "comic",
		kind: types.KindComic,
		match: func(f Features) bool {
			return f.ColorVariance > 0.35 && f.TextDensity < 0.25
		},
	},
	{
		name: "historical",
		kind: types.KindHistorical,
		match: func(f Features) bool {
			return f.ContrastScore < 0.25 && f.NoiseScore > 0.4
		},
	},
	{
		name: "handwriting",
		kind: types.KindHandwriting,
		match: func(f Features) bool {
			return f.NoiseScore > 0.25 && f.NoiseScore <= 0.4 &&
				f.TextDensity > 0.05 && f.TextDensity < 0.4 &&
				f.TableScore < 0.2
		},
	},
	{
		name: "scanned",
		kind: types.KindScanned,
		match: func(f Features) bool {
			return f.BlurScore > 0.6 || f.NoiseScore > 0.5
		},
	},
	{
		name: "mathematical",
		kind: types.KindMathematical,
		match: func(f Features) bool {
			return f.ColumnCount == 1 && f.TextDensity > 0.1 && f.TextDensity < 0.35 &&
				f.LayoutVariance > 0.35 && f.TableScore < 0.2 && f.FormScore < 0.2
		},
	},
	{
		name: "mixed-content",
		kind: types.KindMixedContent,
		match: func(f Features) bool {
			return f.LayoutVariance > 0.5 && f.ColorVariance > 0.15
		},
	},
}

// evaluateRules walks the ordered table; the default kind is printed text.
func evaluateRules(f Features) types.DocumentKind {
	for _, r := range kindRules {
		if r.match(f) {
			return r.kind
		}
	}
	return types.KindPrintedText
}
