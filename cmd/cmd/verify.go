package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"castpress/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the article store's structural integrity",
	Long: `Verify that the article store file parses as JSON, carries the
instructional header, holds a posts array, and that every stored article
satisfies the field validation contract.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st := store.New(cfg.Store, cfg.Articles.Categories)
		if err := st.Verify(); err != nil {
			return fmt.Errorf("store failed integrity check: %w", err)
		}

		doc, err := st.Read()
		if err != nil {
			return err
		}

		invalid := 0
		for _, post := range doc.Posts {
			if violations := st.ValidateArticle(post); len(violations) > 0 {
				invalid++
				fmt.Printf("article %s (%s) has violations:\n", post.ID, post.Slug)
				for _, v := range violations {
					fmt.Printf("  - %s\n", v)
				}
			}
		}

		fmt.Printf("store OK: %d posts, %d with violations\n", len(doc.Posts), invalid)
		if invalid > 0 {
			return fmt.Errorf("%d stored articles fail validation", invalid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
