package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/techtrends"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of techtrends",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "techtrends version %s\n", strings.TrimSpace(techtrends.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
