package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/techtrends/internal/cli"
	"github.com/aretw0/techtrends/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "techtrends",
	Short: "techtrends writes technology trend reports",
	Long: `techtrends plans, researches, writes and converts a technology trend report
for up to three fields (ai, robotics, energy, biotech).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: techtrends.{yaml,yml,json,toml} in the working directory)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level and trace every stage")
}

// loadApp reads the configuration and wires the application. Callers must Close it.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cli.Build(cmd.Context(), cfg, cli.WithDebug(debug))
}
