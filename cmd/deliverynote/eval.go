package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hansjooseptammerik/logistics-automation-mvp/eval"
)

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <dataset.yaml>",
		Short: "Measure parser accuracy against labelled delivery notes",
		Long: `Eval parses every document listed in the dataset and compares the
extracted fields and item rows with the labels. A dataset looks like:

  name: regression
  cases:
    - file: notes/4512.pdf
      category: single-page
      fields:
        order_ref: 4512/03.04.2024
        recipient_name: Mari Maasikas
      items:
        - 1 - Diivan Oslo - 1 tk - Pealadu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			minPass, _ := cmd.Flags().GetFloat64("min-pass-rate")

			ds, err := eval.LoadDataset(args[0])
			if err != nil {
				return err
			}
			report, err := eval.NewEvaluator().Run(cmd.Context(), ds)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), eval.FormatReport(report))

			if output != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
			}

			if rate := eval.PassRate(report); rate < minPass {
				return fmt.Errorf("pass rate %.1f%% is below %.1f%%", rate, minPass)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the JSON report to this file")
	cmd.Flags().Float64("min-pass-rate", 0, "Fail when the pass rate (percent) is lower")
	return cmd
}
