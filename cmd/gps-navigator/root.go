package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bucknalla/go-gps-navigator/internal/appconfig"
)

var (
	configPath string
	cfg        appconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "gps-navigator",
	Short: "Turn-by-turn trip progress from GPS fixes",
	Long: `GPS Navigator follows a route step by step as location fixes arrive,
from a simulated receiver, a real NMEA receiver or HTTP clients.

Examples:
  gps-navigator simulate --route route.json
  gps-navigator simulate --route route.json --serial /dev/ttyUSB0 --gpx
  gps-navigator follow --route route.json --serial /dev/ttyUSB0
  gps-navigator serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = appconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if Version != "dev" {
			fmt.Fprintf(cmd.OutOrStdout(), "v%s (%s, built %s)\n", Version, Commit, BuildDate)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", Commit)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.AddCommand(versionCmd)
}
