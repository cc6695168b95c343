// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibfetch/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [key]",
	Short: "Show recorded outcomes from earlier fetch runs",
	Long: `History reads the fetch ledger and prints recorded outcomes as YAML,
newest first. Give a citation key to see its attempts, --failed to list
failures only, or --runs to list runs with their totals.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringP("output-dir", "o", ".", "output directory whose ledger is read")
	historyCmd.Flags().String("ledger", "", "ledger database path (default <output-dir>/.bibfetch/ledger.db)")
	historyCmd.Flags().Bool("failed", false, "only show failed outcomes")
	historyCmd.Flags().Bool("runs", false, "list runs instead of outcomes")
	historyCmd.Flags().Int("limit", 20, "maximum rows to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := ledgerPath(cmd)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no ledger at %s (run fetch first)", path)
	}
	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	var out any
	if runs, _ := cmd.Flags().GetBool("runs"); runs {
		out, err = store.Runs(ctx, limit)
	} else {
		opts := ledger.HistoryOptions{Limit: limit}
		if len(args) == 1 {
			opts.Key = args[0]
		}
		if failed, _ := cmd.Flags().GetBool("failed"); failed {
			opts.State = "failed"
		}
		out, err = store.History(ctx, opts)
	}
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
