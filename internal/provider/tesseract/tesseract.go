// Package tesseract backs the "tesseract" engine with the gosseract client.
// Loaded clients are expensive (trained data per language set), so they are
// cached in the resource pool and reused across requests.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"ocrd/internal/pool"
	"ocrd/internal/provider"
	"ocrd/pkg/types"
)

const (
	engineName = "tesseract"
	// Rough footprint of one client with a loaded language set.
	clientFootprintBytes = 64 << 20
)

// cachedClient is the pool-resident resource: one gosseract client plus the
// language set it was initialized with. Clients are not safe for concurrent
// use; the engine serializes access.
type cachedClient struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
}

func (c *cachedClient) EstimatedSize() uint64 {
	n := uint64(len(c.langs))
	if n == 0 {
		n = 1
	}
	return n * clientFootprintBytes
}

func (c *cachedClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Engine implements provider.Engine on top of gosseract.
type Engine struct {
	pool     *pool.Pool
	device   string
	priority int
	defaults []string
	log      zerolog.Logger

	clientFactory func() *gosseract.Client
}

// Config tunes engine construction.
type Config struct {
	// Pool caches loaded clients. Required.
	Pool *pool.Pool
	// Device label recorded on cached resources ("cpu" when empty).
	Device string
	// Priority tier for cached clients.
	Priority int
	// DefaultLanguages used when the artifact carries no hints.
	DefaultLanguages []string
	Logger           zerolog.Logger
}

// New constructs the engine and probes the native library. A probe failure is
// returned so the registry degrades the slot to a placeholder.
func New(cfg Config) (provider.Engine, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("tesseract: pool is required")
	}
	e := &Engine{
		pool:          cfg.Pool,
		device:        cfg.Device,
		priority:      cfg.Priority,
		defaults:      cfg.DefaultLanguages,
		log:           cfg.Logger,
		clientFactory: gosseract.NewClient,
	}
	if e.device == "" {
		e.device = "cpu"
	}
	if len(e.defaults) == 0 {
		e.defaults = []string{"eng"}
	}
	if err := e.probe(); err != nil {
		return nil, err
	}
	return e, nil
}

// probe verifies the native tesseract installation answers at all.
func (e *Engine) probe() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tesseract probe panic: %v", rec)
		}
	}()
	c := e.clientFactory()
	defer c.Close()
	if v := c.Version(); v == "" {
		return fmt.Errorf("tesseract: native library reported no version")
	}
	return nil
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) IsAvailable() bool { return true }

func (e *Engine) Info() types.EngineInfo {
	return types.EngineInfo{
		Name:        engineName,
		Modes:       []types.Mode{types.ModeText, types.ModeLayout},
		Languages:   e.defaults,
		Accelerated: false,
		Strengths:   "clean printed text, wide language coverage",
		Limitations: "poor on handwriting and low-quality scans",
		Available:   true,
	}
}

// obtainClient fetches the cached client for the language set or builds and
// registers a fresh one. The build happens outside the pool lock; a
// concurrent build of the same key is resolved last-writer-wins and the
// displaced client is closed here.
func (e *Engine) obtainClient(langs []string) (*cachedClient, error) {
	key := "client-" + strings.Join(langs, "+")
	if res, ok := e.pool.Get(engineName, key); ok {
		if cc, ok := res.(*cachedClient); ok {
			return cc, nil
		}
	}
	cc := &cachedClient{client: e.clientFactory(), langs: langs}
	if err := cc.client.SetLanguage(langs...); err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	_, displaced := e.pool.Register(engineName, key, cc, e.device, e.priority, 0)
	if prev, ok := displaced.(*cachedClient); ok {
		_ = prev.Close()
	}
	return cc, nil
}

// Recognize runs OCR on the artifact, optionally restricted to region.
func (e *Engine) Recognize(ctx context.Context, artifact types.Artifact, mode types.Mode, region *types.Region) (types.Result, error) {
	if err := ctx.Err(); err != nil {
		return types.Result{}, err
	}
	langs := artifact.Languages
	if len(langs) == 0 {
		langs = e.defaults
	}
	cc, err := e.obtainClient(langs)
	if err != nil {
		return types.Result{}, err
	}

	data, err := cropToRegion(artifact.Data, region)
	if err != nil {
		return types.Result{}, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.client == nil {
		// Evicted between Get and use; rebuild once.
		cc.client = e.clientFactory()
		if err := cc.client.SetLanguage(cc.langs...); err != nil {
			return types.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := cc.client.SetImageFromBytes(data); err != nil {
		return types.Result{}, fmt.Errorf("set image: %w", err)
	}
	if artifact.DPI > 0 {
		if err := cc.client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(artifact.DPI)); err != nil {
			return types.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return types.Result{}, err
	}
	text, err := cc.client.Text()
	if err != nil {
		return types.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.TrimSpace(text)

	var blocks []types.TextBlock
	words, avgConf := extractWords(cc.client)
	if mode == types.ModeLayout || len(words) > 0 {
		bounds := mergeBounds(words)
		blocks = []types.TextBlock{{Text: plain, Bounds: bounds, Words: words, Confidence: avgConf}}
	}

	return types.Result{
		ArtifactID: artifact.ID,
		Engine:     engineName,
		PlainText:  plain,
		Blocks:     blocks,
		Confidence: avgConf,
	}, nil
}

func extractWords(c *gosseract.Client) ([]types.TextWord, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	words := make([]types.TextWord, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, types.TextWord{
			Text:       b.Word,
			Bounds:     types.Region{X: float64(b.Box.Min.X), Y: float64(b.Box.Min.Y), Width: float64(b.Box.Dx()), Height: float64(b.Box.Dy())},
			Confidence: conf,
		})
	}
	if len(words) == 0 {
		return words, 0
	}
	return words, sum / float64(len(words))
}

func mergeBounds(words []types.TextWord) types.Region {
	if len(words) == 0 {
		return types.Region{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	var maxX, maxY float64
	for _, w := range words {
		minX = math.Min(minX, w.Bounds.X)
		minY = math.Min(minY, w.Bounds.Y)
		maxX = math.Max(maxX, w.Bounds.X+w.Bounds.Width)
		maxY = math.Max(maxY, w.Bounds.Y+w.Bounds.Height)
	}
	return types.Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// cropToRegion re-encodes the sub-image covered by region; a nil or empty
// region passes the payload through untouched.
func cropToRegion(data []byte, region *types.Region) ([]byte, error) {
	if region == nil || region.IsEmpty() {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(region.X)),
		int(math.Round(region.Y)),
		int(math.Round(region.X+region.Width)),
		int(math.Round(region.Y+region.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region outside image bounds")
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image does not support sub-image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
