package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/techtrends/internal/presentation/tui"
	"github.com/aretw0/techtrends/pkg/domain"
)

// PreviewLines bounds the report preview printed after a markdown run.
const PreviewLines = 40

// RunOptions contains all the configuration for the run and resume commands.
type RunOptions struct {
	Overrides domain.Overrides

	// Interactive asks for the parameters instead of reading Overrides.
	Interactive bool
	// Preview renders the beginning of a markdown report with glamour.
	Preview bool
	// Quiet suppresses the banner and progress lines.
	Quiet bool

	In  io.Reader
	Out io.Writer
}

func (o *RunOptions) defaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

// RunReport prepares and executes one report workflow.
func RunReport(ctx context.Context, app *App, opts RunOptions) error {
	opts.defaults()

	if err := app.Config.EnsureDirs(); err != nil {
		return err
	}
	if !opts.Quiet {
		tui.PrintBanner(opts.Out)
	}

	overrides := opts.Overrides
	if opts.Interactive {
		docs, err := app.Documents.List()
		if err != nil {
			return err
		}
		overrides, err = NewPrompter(opts.In, opts.Out).Collect(app.Defaults(), len(docs))
		if err != nil {
			return handleExecutionError(err)
		}
	}

	params, err := app.Params(overrides)
	if err != nil {
		return err
	}

	wf := app.NewWorkflow()
	if err := wf.Setup(params); err != nil {
		return err
	}
	prepared, _ := wf.State()
	app.Logger.Info("Run Created", "run_id", prepared.RunID, "fields", prepared.Fields, "format", prepared.Format)

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	_, runErr := wf.Run(sigCtx, progressFunc(opts))
	final, _ := wf.State()
	return finish(app, opts, final, runErr, sigCtx)
}

// ResumeReport continues a checkpointed run.
func ResumeReport(ctx context.Context, app *App, runID string, opts RunOptions) error {
	opts.defaults()

	if app.Runs == nil {
		return fmt.Errorf("checkpoints are disabled (checkpoint.backend = %q)", app.Config.Checkpoint.Backend)
	}
	if err := app.Config.EnsureDirs(); err != nil {
		return err
	}

	stored, err := app.Runs.Load(ctx, runID)
	if err != nil {
		return err
	}
	if !opts.Quiet {
		printSystemMessage(opts.Out, "Resuming run '%s' after '%s'...", runID, stored.Status)
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	wf := app.NewWorkflow()
	_, runErr := wf.Resume(sigCtx, runID, progressFunc(opts))
	final, ok := wf.State()
	if !ok {
		final = *stored
	}
	return finish(app, opts, final, runErr, sigCtx)
}

func progressFunc(opts RunOptions) domain.ProgressFunc {
	if opts.Quiet {
		return nil
	}
	return tui.NewProgress(opts.Out).Report
}

func finish(app *App, opts RunOptions, final domain.WorkflowState, runErr error, sigCtx *SignalContext) error {
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	if !opts.Quiet {
		logCompletion(opts.Out, final.RunID, runErr, sigCtx.Signal())
	}
	if sigCtx.Signal() != nil {
		return nil
	}
	if runErr != nil {
		return handleExecutionError(runErr)
	}

	fmt.Fprintf(opts.Out, "Report: %s\n", final.OutputPath)
	if final.PublishedURL != "" {
		fmt.Fprintf(opts.Out, "Published: %s\n", final.PublishedURL)
	}

	if opts.Preview && final.Format == domain.FormatMarkdown {
		rendered, err := tui.Preview(final.Report, PreviewLines)
		if err != nil {
			app.Logger.Warn("preview failed", "error", err)
			return nil
		}
		fmt.Fprint(opts.Out, rendered)
	}
	return nil
}
