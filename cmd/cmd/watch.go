package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"castpress/internal/config"
	"castpress/internal/images"
	"castpress/internal/llm"
	"castpress/internal/logger"
	"castpress/internal/pipeline"
	"castpress/internal/store"
	"castpress/internal/transform"
	"castpress/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the input directory and process transcripts as they arrive",
	Long: `Start the long-running watcher. Every .txt file dropped into the input
directory is validated, transformed into an article, and appended to the
store. Processed files move to the processed archive; failures move to the
failed archive with a diagnostic sidecar. The process runs until it receives
SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, _, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}

		w := watcher.New(cfg.Watch)
		events, err := w.Start(ctx)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}

		logger.Info("watching for transcripts",
			"input_dir", cfg.Watch.InputDir, "model", cfg.Gemini.Model)
		p.Run(ctx, events)
		logger.Info("watcher stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// buildPipeline wires all pipeline components from the loaded configuration.
// A missing language model credential is fatal here: the watcher must refuse
// to start rather than fail on every file later.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *store.Store, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is not set; refusing to start")
	}

	client, err := llm.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return nil, nil, fmt.Errorf("creating language model client: %w", err)
	}
	transformer := transform.New(client, cfg.Articles, cfg.Retry)

	var provider images.Provider
	if unsplash := images.NewUnsplashProvider(cfg.Images); unsplash != nil {
		provider = unsplash
	} else {
		logger.Info("no image search credential configured, category defaults will be used")
	}
	resolver := images.NewResolver(provider, cfg.Images)

	st := store.New(cfg.Store, cfg.Articles.Categories)
	if err := st.EnsureExists(); err != nil {
		return nil, nil, fmt.Errorf("preparing article store: %w", err)
	}

	return pipeline.New(cfg, transformer, resolver, st), st, nil
}
