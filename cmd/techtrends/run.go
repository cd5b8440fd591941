package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/techtrends/internal/cli"
	"github.com/aretw0/techtrends/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a trend report",
	Long: `Runs the plan, research, report and convert stages once.

Without --fields and on a terminal the parameters are asked interactively.`,
	Example: `  techtrends run
  techtrends run --fields ai,energy --format pdf --language en
  techtrends run --fields biotech --rag --depth deep`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		fields, _ := cmd.Flags().GetStringSlice("fields")
		format, _ := cmd.Flags().GetString("format")
		language, _ := cmd.Flags().GetString("language")
		depth, _ := cmd.Flags().GetString("depth")
		rag, _ := cmd.Flags().GetBool("rag")
		noPreview, _ := cmd.Flags().GetBool("no-preview")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := cli.RunOptions{
			Overrides: domain.Overrides{
				Fields:     fields,
				Format:     format,
				Language:   language,
				Depth:      depth,
				RAGEnabled: rag,
			},
			Interactive: len(fields) == 0 && cli.IsTerminal(os.Stdin),
			Preview:     !noPreview && !quiet,
			Quiet:       quiet,
			In:          os.Stdin,
			Out:         cmd.OutOrStdout(),
		}
		return cli.RunReport(cmd.Context(), app, opts)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Continue a checkpointed run after its last completed stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		quiet, _ := cmd.Flags().GetBool("quiet")
		return cli.ResumeReport(cmd.Context(), app, args[0], cli.RunOptions{
			Quiet: quiet,
			Out:   cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	runCmd.Flags().StringSliceP("fields", "f", nil, "Technology fields, up to 3 of: ai, robotics, energy, biotech")
	runCmd.Flags().String("format", "", "Output format: markdown, pdf or docx (default from config)")
	runCmd.Flags().String("language", "", "Report language: ko or en (default from config)")
	runCmd.Flags().String("depth", "", "Analysis depth: standard or deep (default from config)")
	runCmd.Flags().Bool("rag", false, "Ground the report in the registered reference documents")
	runCmd.Flags().Bool("no-preview", false, "Do not render a markdown preview after the run")
	runCmd.Flags().BoolP("quiet", "q", false, "Only print the result")

	resumeCmd.Flags().BoolP("quiet", "q", false, "Only print the result")
}
