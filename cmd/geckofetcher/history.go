package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"geckofetcher/internal/recorder"
	"geckofetcher/pkg/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent fetch cycles",
	Long: `List the most recent fetch cycles recorded in the history database.
Requires history_db to be set in the configuration file.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of cycles to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("history_db is not set in %s", cfg.Path)
	}

	rec, err := recorder.NewSQLiteRecorder(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer rec.Close()

	cycles, err := rec.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cycles recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tENTRIES\tFAILED PAGES\tPERSIST ERROR\tCYCLE")
	for _, c := range cycles {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			c.StartedAt.Local().Format(time.DateTime),
			c.FinishedAt.Sub(c.StartedAt).Round(time.Millisecond),
			c.Entries,
			formatPages(c.FailedPages),
			dash(c.PersistError),
			c.CycleID,
		)
	}
	return w.Flush()
}

func formatPages(pages []int) string {
	if len(pages) == 0 {
		return "-"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
