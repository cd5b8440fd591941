package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage reference documents for RAG runs",
	Long: `Reference documents (pdf, md, txt) are copied into the data directory and
indexed when a run enables RAG.`,
}

var docsAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Register reference documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Config.EnsureDirs(); err != nil {
			return err
		}
		for _, src := range args {
			doc, err := app.Documents.Add(src)
			if err != nil {
				return fmt.Errorf("add %s: %w", src, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", doc.Name, doc.ID)
		}
		return nil
	},
}

var docsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered reference documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		docs, err := app.Documents.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No reference documents registered.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSIZE\tPAGES\tADDED")
		for _, d := range docs {
			pages := "-"
			if d.Pages != nil {
				pages = fmt.Sprint(*d.Pages)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", d.ID, d.Name, d.Size, pages, d.AddedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <id-or-name>...",
	Short: "Unregister reference documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, ref := range args {
			doc, err := app.Documents.Remove(ref)
			if err != nil {
				return fmt.Errorf("remove %s: %w", ref, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", doc.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsAddCmd)
	docsCmd.AddCommand(docsLsCmd)
	docsCmd.AddCommand(docsRmCmd)
}
