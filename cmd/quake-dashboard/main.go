package main

import (
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "quake-dashboard",
		Short: "Serve a live earthquake dashboard for one region",
		Long: `quake-dashboard polls the USGS earthquake feed for a configured region and
serves a live dashboard: event list, map markers, the most significant
recent earthquake, 24h/7d statistics and a daily histogram, refreshed on a
configurable interval.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")

	addListCmd(rootCmd)
	addStatsCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
