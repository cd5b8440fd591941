package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/techtrends/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph",
	Long: `Prints the stage graph as a Mermaid diagram (graph TD).
With --run, the stages the run went through are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		wf := app.NewWorkflow()
		out := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(wf.Graph(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		var overlay *graph.GraphOverlay
		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			if app.Runs == nil {
				return errNoCheckpoints
			}
			state, err := app.Runs.Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("load run '%s': %w", runID, err)
			}
			overlay = graph.OverlayFromState(state, wf.Stages())
		}

		fmt.Fprint(out, graph.GenerateMermaid(wf.Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight the path taken by a checkpointed run")
	graphCmd.Flags().Bool("json", false, "Print the graph as JSON")
}
