package stages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/techtrends/pkg/domain"
)

// StemPrefix starts the name of every produced report file.
const StemPrefix = "tech_trend_report_"

// runIDSuffixLen bounds the run ID part of a stem.
const runIDSuffixLen = 8

// Stem returns the output file name, without extension, for a run converted at t.
// The run ID part keeps runs converting within the same second apart.
func Stem(t time.Time, runID string) string {
	stem := StemPrefix + t.Format("20060102_150405")
	suffix := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return -1
	}, runID)
	if len(suffix) > runIDSuffixLen {
		suffix = suffix[:runIDSuffixLen]
	}
	if suffix == "" {
		return stem
	}
	return stem + "_" + suffix
}

// Convert renders the report into the requested format and optionally publishes it.
type Convert struct {
	rt *Runtime
}

// Name implements ports.Stage.
func (s *Convert) Name() domain.StageName { return domain.StageConvert }

// Run implements ports.Stage.
func (s *Convert) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	state.Progress(fmt.Sprintf("Converting to %s...", state.Format))

	if !state.Format.Valid() {
		return collaboratorFailure(state, domain.StageConvert, CollaboratorConversion,
			&domain.UnsupportedFormatError{Format: string(state.Format)})
	}

	path, err := s.rt.Converter.Convert(ctx, state.Report, state.Format, Stem(s.rt.now(), state.RunID))
	if err != nil {
		return collaboratorFailure(state, domain.StageConvert, CollaboratorConversion, err)
	}
	state.OutputPath = path

	if s.rt.Publisher != nil {
		url, err := s.rt.Publisher.Publish(ctx, path)
		if err != nil {
			state.OutputPath = ""
			return collaboratorFailure(state, domain.StageConvert, CollaboratorPublish, err)
		}
		state.PublishedURL = url
		s.rt.logger().InfoContext(ctx, "report published", "run_id", state.RunID, "url", url)
	}

	state.Status = domain.StatusCompleted
	return state
}
