package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrd/internal/classifier"
	"ocrd/internal/common/fsutil"
	"ocrd/internal/config"
	"ocrd/internal/logging"
	"ocrd/internal/pool"
	"ocrd/internal/provider"
	"ocrd/internal/provider/tesseract"
	"ocrd/internal/registry"
	"ocrd/internal/selector"
	"ocrd/pkg/types"
)

// app bundles the wired core for command handlers.
type app struct {
	cfg config.Config
	log zerolog.Logger
	p   *pool.Pool
	reg *registry.Registry
	cls *classifier.Classifier
	sel *selector.Selector
}

// buildApp wires config -> logger -> pool -> registry -> selector, the same
// order the pieces depend on each other.
func buildApp(cfg config.Config) *app {
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if expanded, err := fsutil.ExpandHome(cfg.RecencyPath); err == nil {
		cfg.RecencyPath = expanded
	}

	p := pool.New(pool.Config{
		BudgetBytes:      uint64(cfg.PoolBudgetMB) << 20,
		ProtectThreshold: cfg.ProtectThreshold,
		PressureRatio:    cfg.PressureRatio,
		TargetFreeRatio:  cfg.TargetFreeRatio,
		RecencyPath:      cfg.RecencyPath,
		Telemetry:        pool.NopTelemetry{},
		Logger:           log,
	})

	reg := registry.New(log, registry.WithLanguageAnnotator(provider.NewLanguageAnnotator()))
	reg.Register("tesseract", func() (provider.Engine, error) {
		return tesseract.New(tesseract.Config{
			Pool:             p,
			Priority:         cfg.PriorityFor("tesseract", 4),
			DefaultLanguages: cfg.DefaultLanguages,
			Logger:           log,
		})
	})
	reg.Register("noop", provider.NewNoopEngine)

	cls := classifier.New(log)
	sel := selector.New(cls, reg, selector.Config{
		Aliases:    cfg.Aliases,
		Preference: cfg.Preference,
	}, log)

	return &app{cfg: cfg, log: log, p: p, reg: reg, cls: cls, sel: sel}
}

// loadArtifact reads an image file into an artifact, inferring the content
// type from the extension.
func loadArtifact(path string, langs []string) (types.Artifact, error) {
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return types.Artifact{}, err
	}
	if !fsutil.PathExists(path) {
		return types.Artifact{}, fmt.Errorf("no such artifact: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{
		ID:        filepath.Base(path),
		Data:      data,
		Format:    mime.TypeByExtension(filepath.Ext(path)),
		Languages: langs,
	}, nil
}

// blankArtifact builds a small white page used to warm engine resources.
func blankArtifact() types.Artifact {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 255}.Y
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return types.Artifact{ID: "warmup", Data: buf.Bytes(), Format: "image/png"}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func buildRootCmd(cfg *config.Config) *cobra.Command {
	var configPath string
	var langs []string

	root := &cobra.Command{
		Use:           "ocrctl",
		Short:         "Inspect and drive the OCR engine pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringSliceVar(&langs, "lang", nil, "Language hints for recognition (e.g. eng,deu)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return nil
		}
		path, err := fsutil.ExpandHome(configPath)
		if err != nil {
			return err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		*cfg = loaded.WithDefaults()
		return nil
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List registered engines and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp(*cfg)
			return printJSON(a.reg.List())
		},
	}

	classifyCmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a document image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp(*cfg)
			artifact, err := loadArtifact(args[0], langs)
			if err != nil {
				return err
			}
			return printJSON(a.cls.Analyze(artifact))
		},
	}

	var engine string
	var timeout time.Duration
	processCmd := &cobra.Command{
		Use:   "process <image>",
		Short: "Select an engine and run recognition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp(*cfg)
			artifact, err := loadArtifact(args[0], langs)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			res, err := a.reg.Process(ctx, a.sel, types.ProcessRequest{
				Engine:   engine,
				Artifact: artifact,
			})
			if err != nil {
				return err
			}
			defer a.p.SaveRecencyMetadata()
			return printJSON(res)
		},
	}
	processCmd.Flags().StringVar(&engine, "engine", types.EngineAuto, "Engine name or \"auto\"")
	processCmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (0 = none)")

	var cleanupIdle bool
	warmupCmd := &cobra.Command{
		Use:   "warmup",
		Short: "Preload cached resources for available engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp(*cfg)
			if cleanupIdle {
				removed := a.p.CleanupIdle(time.Duration(a.cfg.IdleMinutes) * time.Minute)
				a.log.Info().Int("removed", removed).Msg("idle cleanup")
			}
			// Warm one recognition per available engine against a tiny blank
			// page so backing resources end up resident.
			for _, name := range a.reg.ListAvailable() {
				_, err := a.reg.Dispatch(cmd.Context(), name, blankArtifact(), types.ModeText, nil)
				if err != nil {
					a.log.Warn().Err(err).Str("engine", name).Msg("warmup failed")
				}
			}
			a.p.SaveRecencyMetadata()
			return printJSON(a.p.Snapshot())
		},
	}
	warmupCmd.Flags().BoolVar(&cleanupIdle, "cleanup-idle", false, "Run idle cleanup before warming")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool stats and gathered metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp(*cfg)
			if err := printJSON(a.p.Snapshot()); err != nil {
				return err
			}
			families, err := prometheus.DefaultGatherer.Gather()
			if err != nil {
				return err
			}
			for _, mf := range families {
				fmt.Printf("# %s\n", mf.GetName())
			}
			return nil
		},
	}

	root.AddCommand(providersCmd, classifyCmd, processCmd, warmupCmd, statsCmd)
	return root
}
