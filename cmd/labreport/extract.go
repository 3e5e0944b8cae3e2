package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
	"github.com/thywilljoshua/lab-report-analyzer/internal/export"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

func extractCmd(opts *globalOptions) *cobra.Command {
	var outDir string
	var csvOut bool
	var xlsxOut bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract the lab result table from a PDF",
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
			if asJSON {
				if err := printJSON(w, res); err != nil {
					return err
				}
			} else {
				printSummary(w, res.Message, "extractor", res.Extractor, "pages", res.Pages, "rows", len(res.Table.Rows))
				printTable(w, res.Table)
			}

			if res.Table.Empty() {
				return nil
			}
			now := time.Now()
			if csvOut {
				path, err := writeCSVFile(outDir, now, res.Table)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("csv: ")+path)
			}
			if xlsxOut {
				data, err := export.XLSX(res.Table)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, export.TimestampedName(now, ".xlsx"))
				if err := writeFile(path, data); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("xlsx: ")+path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "temp", "directory for exported files")
	cmd.Flags().BoolVar(&csvOut, "csv", true, "write a UTF-8 (BOM) CSV export")
	cmd.Flags().BoolVar(&xlsxOut, "xlsx", false, "write an XLSX export")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeCSVFile(dir string, now time.Time, t *table.Table) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, export.TimestampedName(now, ".csv"))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.WriteCSV(f, t, true); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
