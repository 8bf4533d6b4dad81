package classifier

import (
	"image"
	"math"
	"sort"
)

// Features are the structural and quality measurements extracted from one
// artifact. Ephemeral: computed per Analyze call, never persisted.
//
// Every scoring function below is pure and depends only on the decoded
// raster, never on another score, so any subset can be computed in parallel.
type Features struct {
	TextDensity    float64 // fraction of ink-like pixels, 0..1
	TableScore     float64 // likelihood of ruled rows/columns, 0..1
	FormScore      float64 // likelihood of labeled fill-in fields, 0..1
	ColorVariance  float64 // mean per-pixel channel spread, 0..1
	BlurScore      float64 // higher = blurrier, 0..1
	NoiseScore     float64 // higher = noisier, 0..1
	ContrastScore  float64 // higher = stronger contrast, 0..1
	ColumnCount    int     // estimated text columns, >= 1
	AspectRatio    float64 // height / width
	LayoutVariance float64 // windowed text-density variance over a 3x3 grid, 0..1
	LanguageHints  int     // count of caller-provided language hints
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// inkThreshold derives a global binarization threshold from the mean
// luminance. Documents are mostly background, so a fraction of the mean
// separates ink well enough for coarse statistics.
func inkThreshold(g *image.Gray) uint8 {
	b := g.Bounds()
	if b.Empty() {
		return 128
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, px := range row {
			sum += uint64(px)
		}
	}
	mean := float64(sum) / float64(b.Dx()*b.Dy())
	t := mean * 0.72
	if t < 16 {
		t = 16
	}
	if t > 230 {
		t = 230
	}
	return uint8(t)
}

// textDensity measures the fraction of ink pixels, rescaled so that a densely
// set page of body text approaches 1.
func textDensity(g *image.Gray, thresh uint8) float64 {
	b := g.Bounds()
	if b.Empty() {
		return 0
	}
	var dark int
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, px := range row {
			if px < thresh {
				dark++
			}
		}
	}
	frac := float64(dark) / float64(b.Dx()*b.Dy())
	return clamp01(frac / 0.40)
}

// densityInRect is textDensity restricted to a sub-rectangle, used by the
// layout-variance grid.
func densityInRect(g *image.Gray, thresh uint8, r image.Rectangle) float64 {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return 0
	}
	b := g.Bounds()
	var dark int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := (y - b.Min.Y) * g.Stride
		for x := r.Min.X; x < r.Max.X; x++ {
			if g.Pix[off+(x-b.Min.X)] < thresh {
				dark++
			}
		}
	}
	frac := float64(dark) / float64(r.Dx()*r.Dy())
	return clamp01(frac / 0.40)
}

// layoutVariance computes the population variance of text density across a
// 3x3 grid of the page, rescaled to 0..1. Uniform pages (plain text) score
// near zero; pages mixing dense and empty areas score high.
func layoutVariance(g *image.Gray, thresh uint8) float64 {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}
	cellW, cellH := b.Dx()/3, b.Dy()/3
	var cells [9]float64
	for gy := 0; gy < 3; gy++ {
		for gx := 0; gx < 3; gx++ {
			r := image.Rect(
				b.Min.X+gx*cellW, b.Min.Y+gy*cellH,
				b.Min.X+(gx+1)*cellW, b.Min.Y+(gy+1)*cellH,
			)
			cells[gy*3+gx] = densityInRect(g, thresh, r)
		}
	}
	var mean float64
	for _, c := range cells {
		mean += c
	}
	mean /= 9
	var v float64
	for _, c := range cells {
		d := c - mean
		v += d * d
	}
	v /= 9
	// Max variance for values in [0,1] is 0.25.
	return clamp01(v * 4)
}

// ruleRuns counts rows (or columns, when vertical) where a single dark run
// spans at least minSpan of the dimension, indicating a ruling line.
func ruleRuns(g *image.Gray, thresh uint8, vertical bool, minSpan float64) int {
	b := g.Bounds()
	if b.Empty() {
		return 0
	}
	count := 0
	if !vertical {
		need := int(minSpan * float64(b.Dx()))
		for y := 0; y < b.Dy(); y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
			run, best := 0, 0
			for _, px := range row {
				if px < thresh {
					run++
					if run > best {
						best = run
					}
				} else {
					run = 0
				}
			}
			if best >= need {
				count++
			}
		}
		return count
	}
	need := int(minSpan * float64(b.Dy()))
	for x := 0; x < b.Dx(); x++ {
		run, best := 0, 0
		for y := 0; y < b.Dy(); y++ {
			if g.Pix[y*g.Stride+x] < thresh {
				run++
				if run > best {
					best = run
				}
			} else {
				run = 0
			}
		}
		if best >= need {
			count++
		}
	}
	return count
}

// tableScore rates grid-like ruling: several long horizontal and vertical
// lines together.
func tableScore(g *image.Gray, thresh uint8) float64 {
	h := ruleRuns(g, thresh, false, 0.6)
	v := ruleRuns(g, thresh, true, 0.6)
	if h == 0 || v == 0 {
		return clamp01(float64(h+v) / 24)
	}
	return clamp01((float64(h)/8 + float64(v)/8) / 2 * 1.5)
}

// formScore rates fill-in layouts: horizontal rules without the vertical
// ruling a table would have.
func formScore(g *image.Gray, thresh uint8) float64 {
	h := ruleRuns(g, thresh, false, 0.35)
	v := ruleRuns(g, thresh, true, 0.6)
	if v > h/2 && v > 2 {
		// grid-like; the table rule should win
		return clamp01(float64(h) / 40)
	}
	return clamp01(float64(h) / 12)
}

// colorVariance measures the mean per-pixel RGB channel spread on the
// original (pre-grayscale) raster. Monochrome documents score near zero.
func colorVariance(src image.Image) float64 {
	b := src.Bounds()
	if b.Empty() {
		return 0
	}
	// Sample on a stride to keep this cheap on large rasters.
	stepX := b.Dx()/256 + 1
	stepY := b.Dy()/256 + 1
	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := src.At(x, y).RGBA()
			hi := max3(r, g, bl)
			lo := min3(r, g, bl)
			sum += float64(hi-lo) / 65535
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n) * 3)
}

func max3(a, b, c uint32) uint32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c uint32) uint32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// blurScore inverts normalized Laplacian variance: sharp edges give high
// variance, so low variance means blur.
func blurScore(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 1
	}
	var sum, sumSq float64
	var n int
	for y := 1; y < b.Dy()-1; y++ {
		for x := 1; x < b.Dx()-1; x++ {
			c := float64(g.Pix[y*g.Stride+x])
			lap := 4*c -
				float64(g.Pix[(y-1)*g.Stride+x]) -
				float64(g.Pix[(y+1)*g.Stride+x]) -
				float64(g.Pix[y*g.Stride+x-1]) -
				float64(g.Pix[y*g.Stride+x+1])
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	// Empirically, crisp document scans sit well above 150 here.
	return clamp01(1 - variance/150)
}

// noiseScore counts isolated pixels that disagree strongly with all four
// neighbors, a cheap proxy for salt-and-pepper noise.
func noiseScore(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}
	const delta = 48
	isolated := 0
	n := 0
	for y := 1; y < b.Dy()-1; y++ {
		for x := 1; x < b.Dx()-1; x++ {
			c := int(g.Pix[y*g.Stride+x])
			up := int(g.Pix[(y-1)*g.Stride+x])
			down := int(g.Pix[(y+1)*g.Stride+x])
			left := int(g.Pix[y*g.Stride+x-1])
			right := int(g.Pix[y*g.Stride+x+1])
			if abs(c-up) > delta && abs(c-down) > delta && abs(c-left) > delta && abs(c-right) > delta {
				isolated++
			}
			n++
		}
	}
	return clamp01(float64(isolated) / float64(n) * 50)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// contrastScore measures the luminance spread between the 5th and 95th
// percentiles.
func contrastScore(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Empty() {
		return 0
	}
	var hist [256]int
	total := 0
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, px := range row {
			hist[px]++
			total++
		}
	}
	p5 := percentile(hist[:], total, 0.05)
	p95 := percentile(hist[:], total, 0.95)
	return clamp01(float64(p95-p5) / 255)
}

func percentile(hist []int, total int, q float64) int {
	target := int(math.Ceil(q * float64(total)))
	cum := 0
	for v, c := range hist {
		cum += c
		if cum >= target {
			return v
		}
	}
	return 255
}

// columnCount estimates text columns from the vertical ink projection:
// contiguous dense bands separated by gutters.
func columnCount(g *image.Gray, thresh uint8) int {
	b := g.Bounds()
	if b.Dx() < 10 || b.Dy() < 10 {
		return 1
	}
	proj := make([]float64, b.Dx())
	for x := 0; x < b.Dx(); x++ {
		dark := 0
		for y := 0; y < b.Dy(); y++ {
			if g.Pix[y*g.Stride+x] < thresh {
				dark++
			}
		}
		proj[x] = float64(dark) / float64(b.Dy())
	}
	// A column is a band whose density clears a fraction of the page median.
	sorted := append([]float64(nil), proj...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	cut := median * 0.5
	if cut < 0.01 {
		cut = 0.01
	}
	minGutter := b.Dx() / 33
	if minGutter < 2 {
		minGutter = 2
	}
	cols, gutter := 0, minGutter
	inBand := false
	for _, v := range proj {
		if v > cut {
			if !inBand && gutter >= minGutter {
				cols++
			}
			inBand = true
			gutter = 0
		} else {
			inBand = false
			gutter++
		}
	}
	if cols < 1 {
		cols = 1
	}
	return cols
}
