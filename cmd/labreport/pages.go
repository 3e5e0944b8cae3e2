package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
)

func pagesCmd(opts *globalOptions) *cobra.Command {
	var preview int

	cmd := &cobra.Command{
		Use:   "pages <pdf>",
		Short: "Show the page count and a text preview of each page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.InvalidInput(convert.MsgFileNotFound)
			}
			if !convert.IsPDF(data) {
				return common.InvalidInput("dosya geçerli bir PDF değil")
			}
			w := cmd.OutOrStdout()
			n, err := convert.PageCount(data)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("page count: "+err.Error()))
			}
			pages, err := convert.PageTexts(data)
			if err != nil {
				return err
			}
			if n == 0 {
				n = len(pages)
			}
			printSummary(w, "pages", "count", n)
			for _, p := range pages {
				text := strings.TrimSpace(p.Text)
				if r := []rune(text); preview > 0 && len(r) > preview {
					text = string(r[:preview]) + "…"
				}
				if text == "" {
					text = dimStyle.Render("(no text layer)")
				}
				fmt.Fprintf(w, "%s\n%s\n\n", titleStyle.Render(fmt.Sprintf("%d / %d", p.Page, n)), text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&preview, "preview", 400, "characters of text to show per page (0 = all)")
	return cmd
}
