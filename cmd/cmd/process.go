package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <transcript-file>",
	Short: "Run the pipeline once for a single transcript file",
	Long: `Process one transcript file through the same pipeline the watcher uses:
validate, transform, resolve an image, append to the store, and archive the
source file. Useful for reprocessing a failed transcript by hand.

Example:
  castpress process transcripts/failed/episode-42.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, _, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}

		if err := p.Handle(ctx, args[0]); err != nil {
			return fmt.Errorf("processing %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
