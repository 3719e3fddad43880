package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

func quietLogger(verbose bool) *slog.Logger {
	if verbose {
		return slog.Default()
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addListCmd adds a 'list' subcommand that prints the regional events
// without starting the server.
func addListCmd(rootCmd *cobra.Command) {
	var (
		days    int
		verbose bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent earthquakes in the configured region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session := newSession(cfg, clockwork.NewRealClock(), observability.NewMetricsForTesting(), quietLogger(verbose))
			if days != 0 {
				if err := session.SetDaysBack(days); err != nil {
					return err
				}
			}
			if err := session.RenderEvents(context.Background()); err != nil {
				return fmt.Errorf("fetch earthquakes: %w", err)
			}
			printEvents(cmd.OutOrStdout(), session.Snapshot())
			return nil
		},
	}
	listCmd.Flags().IntVarP(&days, "days", "d", 0, "Days back: 1, 7 or 30 (default from config)")
	listCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log feed requests")
	rootCmd.AddCommand(listCmd)
}

// addStatsCmd adds a 'stats' subcommand that prints the 24h/7d summary and
// the daily histogram.
func addStatsCmd(rootCmd *cobra.Command) {
	var verbose bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print earthquake statistics for the configured region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session := newSession(cfg, clockwork.NewRealClock(), observability.NewMetricsForTesting(), quietLogger(verbose))
			if err := session.RefreshStats(context.Background()); err != nil {
				return fmt.Errorf("fetch statistics: %w", err)
			}
			printStats(cmd.OutOrStdout(), session.Snapshot())
			return nil
		},
	}
	statsCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log feed requests")
	rootCmd.AddCommand(statsCmd)
}

func printEvents(w io.Writer, snap dashboard.Snapshot) {
	items := snap.Events.Items
	if len(items) == 0 {
		fmt.Fprintf(w, "No earthquakes in the past %d day(s).\n", snap.DaysBack)
		return
	}
	fmt.Fprintf(w, "Earthquakes in the past %d day(s): %d\n\n", snap.DaysBack, len(items))
	for _, it := range items {
		depth := "   ?   "
		if it.DepthKm != nil {
			depth = fmt.Sprintf("%5.1fkm", *it.DepthKm)
		}
		fmt.Fprintf(w, "%-5s %-4s %s  %s  %s\n", it.Magnitude, it.Tier, it.TimeLabel, depth, it.Place)
	}
}

func printStats(w io.Writer, snap dashboard.Snapshot) {
	st := snap.Stats
	fmt.Fprintf(w, "Last 24h:    %s\n", st.Count24h)
	fmt.Fprintf(w, "Last 7 days: %s\n", st.Count7d)
	largest := st.Largest24h
	if st.LargestPlace != "" {
		largest += " " + st.LargestPlace
	}
	fmt.Fprintf(w, "Largest 24h: %s\n\n", largest)

	chart := snap.Chart
	maxCount := 0
	for _, n := range chart.Data {
		maxCount = max(maxCount, n)
	}
	for i, label := range chart.Labels {
		bar := 0
		if maxCount > 0 {
			bar = chart.Data[i] * 40 / maxCount
		}
		fmt.Fprintf(w, "%-6s %4d %s\n", label, chart.Data[i], strings.Repeat("#", bar))
	}
}
