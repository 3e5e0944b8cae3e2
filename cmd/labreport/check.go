package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const selfTestPhrase = "Hemoglobin değeri yüksek"

func checkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Embed a test phrase to verify the embedding setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, zap.NewAtomicLevelAt(zap.WarnLevel))
			if err != nil {
				return err
			}
			defer a.close()

			start := time.Now()
			vec, err := a.embedder().EmbedQuery(ctx, selfTestPhrase)
			if err != nil {
				return err
			}
			if len(vec) != a.cfg.Gemini.Dimensions {
				return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), a.cfg.Gemini.Dimensions)
			}
			printSummary(cmd.OutOrStdout(), successStyle.Render("embedding ok"),
				"model", a.cfg.Gemini.EmbeddingModel,
				"dims", len(vec),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return nil
		},
	}
}
