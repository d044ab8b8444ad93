package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"coverforge/internal/artifacts"
	"coverforge/internal/manifest"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect cached cover runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, ctx)
		},
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached run directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, ctx)
		},
	}
}

func runRunsList(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	store := artifacts.NewStore(cfg.Paths.OutputDir)
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cached runs")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		base := run.Base
		if base == "" {
			base = "-"
		}
		rows = append(rows, []string{
			run.RunID,
			base,
			strconv.Itoa(run.Files),
			formatSize(run.SizeBytes),
			formatTimestamp(run.ModifiedAt),
		})
	}

	out := renderTable(
		[]string{"Run", "Title", "Files", "Size", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show manifest detail for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			man, err := manifest.Open(cfg.Paths.OutputDir)
			if err != nil {
				return fmt.Errorf("open run manifest: %w", err)
			}
			defer man.Close()

			runID := strings.TrimSpace(args[0])
			record, err := man.Run(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("run %s not found", runID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", record.RunID)
			fmt.Fprintf(out, "Source:  %s\n", record.Source)
			if record.Base != "" {
				fmt.Fprintf(out, "Title:   %s\n", record.Base)
			}
			fmt.Fprintf(out, "Created: %s\n", formatTimestamp(record.CreatedAt))
			fmt.Fprintf(out, "Updated: %s\n", formatTimestamp(record.UpdatedAt))

			stages, err := man.StagesForRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(stages) == 0 {
				fmt.Fprintln(out, "No stages recorded")
				return nil
			}

			rows := make([][]string, 0, len(stages))
			for _, stage := range stages {
				completed := "-"
				if stage.CompletedAt != nil {
					completed = formatTimestamp(*stage.CompletedAt)
				}
				detail := stage.ErrorText
				if detail == "" {
					detail = strconv.Itoa(len(stage.Outputs)) + " output(s)"
				}
				rows = append(rows, []string{
					stageLabel(stage.StageKey),
					string(stage.Status),
					completed,
					detail,
				})
			}

			table := renderTable(
				[]string{"Stage", "Status", "Completed", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

var stageTitleCaser = cases.Title(language.English)

func stageLabel(stageKey string) string {
	return stageTitleCaser.String(strings.ReplaceAll(stageKey, "_", " "))
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	for _, suffix := range suffixes {
		value /= unit
		if value < unit || suffix == suffixes[len(suffixes)-1] {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
