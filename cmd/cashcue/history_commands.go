package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cashcue/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var denomination string
	var within time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List confirmed denominations",
		Args:  cobra.NoArgs,
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

			opts := history.ListOptions{Limit: limit, Denomination: strings.TrimSpace(denomination)}
			if within > 0 {
				opts.Since = time.Now().Add(-within)
			}
			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries, counts)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().StringVarP(&denomination, "denomination", "d", "", "Only show this denomination")
	cmd.Flags().DurationVar(&within, "since", 0, "Only show entries newer than this duration (for example 24h)")

	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history entries\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove entries older than this duration")
	return cmd
}

func printHistory(out io.Writer, entries []history.Entry, counts map[string]int) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No confirmations recorded")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.ConfirmedAt.Local().Format("2006-01-02 15:04:05"),
			e.Label(),
			e.Mode,
			e.Source,
			yesNo(e.Announced),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Confirmed", "Result", "Mode", "Source", "Spoken"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		"", fmt.Sprintf("%d shown", len(entries)),
	))
	if summary := countSummary(counts); summary != "" {
		fmt.Fprintln(out, "Totals: "+summary)
	}
}

func countSummary(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
