package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func indexCmd(opts *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the reference texts into the local vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, zap.NewAtomicLevelAt(zap.InfoLevel))
			if err != nil {
				return err
			}
			defer a.close()

			if dir == "" {
				dir = a.cfg.Retrieval.References
			}
			svc, store, err := a.references(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := svc.Index(ctx, dir)
			if err != nil {
				return err
			}
			total, err := svc.Count(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), "index",
				"location", dir,
				"loaded", stats.Loaded,
				"embedded", stats.Embedded,
				"unchanged", stats.Unchanged,
				"removed", stats.Removed,
				"total", total,
			)
			if stats.Loaded == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("no .txt reference files found in "+dir))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "reference location: local dir or afs URL (default from config)")
	return cmd
}
