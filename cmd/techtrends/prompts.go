package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt templates",
}

var promptsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List prompt templates and where they come from",
	Long: `Lists the built-in prompt templates. Files in the prompt directory
(prompt_dir, default "prompts") override templates with the same name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTAGE\tSOURCE\tDESCRIPTION")
		for _, p := range app.Prompts.List() {
			source := string(p.Source)
			if p.Path != "" {
				source += " (" + p.Path + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Stage, source, p.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsLsCmd)
}
