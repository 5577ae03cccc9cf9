package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skyreel/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent posting runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs, cfg.Location()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func renderHistory(runs []*history.Run, loc *time.Location) string {
	caser := cases.Title(language.English)
	columns := []tableColumn{
		{Header: "Started"},
		{Header: "Trigger"},
		{Header: "Status"},
		{Header: "Source"},
		{Header: "Title", MaxWidth: 40},
		{Header: "Media"},
		{Header: "Took", Align: alignRight},
		{Header: "Error", MaxWidth: 48},
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		took := ""
		if d := run.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		errText := ""
		if run.ErrorKind != "" {
			errText = run.ErrorKind
			if msg := strings.TrimSpace(run.ErrorMessage); msg != "" {
				errText += ": " + msg
			}
		}
		rows = append(rows, []string{
			run.StartedAt.In(loc).Format(historyTimeLayout),
			string(run.Trigger),
			caser.String(string(run.Status)),
			run.ContentType,
			run.Title,
			run.MediaID,
			took,
			errText,
		})
	}
	return renderTable(columns, rows)
}
