package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"castpress/internal/config"
	"castpress/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "castpress",
	Short: "CastPress turns podcast transcripts into published articles",
	Long: `CastPress watches an input directory for episode transcripts, transforms
each one into a structured article with a language model, resolves a header
image, and appends the result to the JSON article store with
backup-before-write safety.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.castpress.yaml or $HOME/.castpress.yaml)")
}

// loadConfig loads the configuration once and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level)
	return cfg, nil
}
