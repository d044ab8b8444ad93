package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"coverforge/internal/services/rvc"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List installed voice models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(cfg.Paths.VoiceModelsDir)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No voice models installed")
					return nil
				}
				return fmt.Errorf("read voice models directory: %w", err)
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				name := entry.Name()
				state := "ready"
				detail := ""
				weights, index, err := rvc.LocateModel(cfg.VoiceModelDir(name))
				switch {
				case err != nil:
					state = "incomplete"
					detail = "no .pth weights file"
				case index == "":
					detail = filepath.Base(weights) + " (no feature index)"
				default:
					detail = filepath.Base(weights)
				}
				rows = append(rows, []string{name, state, detail})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No voice models installed")
				return nil
			}

			table := renderTable(
				[]string{"Model", "Status", "Weights"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
