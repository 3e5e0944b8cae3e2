package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/analysis"
	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
)

func analyzeCmd(opts *globalOptions) *cobra.Command {
	var out string
	var noStream bool
	var noRefs bool

	cmd := &cobra.Command{
		Use:   "analyze <pdf>",
		Short: "Extract the table and write a medical analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, zap.NewAtomicLevelAt(zap.WarnLevel))
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(ctx, a.cfg.Gemini.Timeout)
			defer cancel()

			res, err := convert.Run(ctx, args[0], a.convertConfig())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printSummary(w, res.Message, "extractor", res.Extractor, "rows", len(res.Table.Rows))
			printTable(w, res.Table)
			if res.Table.Empty() {
				fmt.Fprintln(w, warnStyle.Render(analysis.NoDataMessage))
				return nil
			}

			var refs analysis.Retriever
			if !noRefs {
				svc, store, err := a.references(ctx)
				if err != nil {
					a.log.Warn("analyze.references_unavailable", "error", err)
				} else {
					defer store.Close()
					refs = svc
				}
			}

			var onChunk func(string)
			if !noStream {
				fmt.Fprintln(w, titleStyle.Render("## 🏥 Tıbbi Analiz Raporu"))
				onChunk = func(s string) { io.WriteString(w, s) }
			}
			rep, err := a.analyzer(refs).AnalyzeStream(ctx, res.Table, onChunk)
			if err != nil {
				return err
			}
			if noStream {
				fmt.Fprintln(w, titleStyle.Render("## 🏥 Tıbbi Analiz Raporu"))
				fmt.Fprintln(w, rep.Markdown)
			} else {
				fmt.Fprintln(w)
			}
			printFlags(cmd.ErrOrStderr(), rep.Flags)

			if out == "" {
				return nil
			}
			if out == "auto" {
				out = convert.ReportName(args[0])
			}
			names := make([]string, 0, len(rep.References))
			for _, r := range rep.References {
				names = append(names, r.Name)
			}
			err = convert.WriteReport(out, convert.ReportDoc{
				Source:     args[0],
				RequestID:  rep.RequestID,
				Generated:  time.Now(),
				Table:      res.Table,
				Flagged:    abnormal.Describe(rep.Flags),
				References: names,
				Analysis:   rep.Markdown,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("report: ")+out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a markdown report to this file (\"auto\" derives the name from the PDF)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "print the report only when generation has finished")
	cmd.Flags().BoolVar(&noRefs, "no-references", false, "skip the reference index lookup")
	return cmd
}
