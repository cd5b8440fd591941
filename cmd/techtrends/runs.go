package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/techtrends/pkg/runs"
)

var errNoCheckpoints = errors.New("checkpoints are disabled (set checkpoint.backend)")

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage checkpointed runs",
	Long:  `List, inspect and remove the run snapshots kept by the checkpoint backend.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List checkpointed runs, most recent first",
	RunE: withRuns(func(cmd *cobra.Command, _ []string, m *runs.Manager) error {
		summaries, err := m.Summaries(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No runs found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tSTATUS\tFIELDS\tFORMAT\tUPDATED\tDETAIL")
		for _, s := range summaries {
			fields := make([]string, len(s.Fields))
			for i, f := range s.Fields {
				fields[i] = string(f)
			}
			detail := s.OutputPath
			if s.Error != "" {
				detail = fmt.Sprintf("%s: %s", s.FailedStage, s.Error)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.RunID, s.Status, strings.Join(fields, ","), s.Format,
				s.UpdatedAt.Local().Format(time.DateTime), detail)
		}
		return tw.Flush()
	}),
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Print the stored state of a run",
	Args:  cobra.ExactArgs(1),
	RunE: withRuns(func(cmd *cobra.Command, args []string, m *runs.Manager) error {
		state, err := m.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load run '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}),
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: withRuns(func(cmd *cobra.Command, args []string, m *runs.Manager) error {
		var errs []error
		for _, id := range args {
			if err := m.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'\n", id)
		}
		return errors.Join(errs...)
	}),
}

func withRuns(fn func(*cobra.Command, []string, *runs.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if app.Runs == nil {
			return errNoCheckpoints
		}
		return fn(cmd, args, app.Runs)
	}
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)
}
