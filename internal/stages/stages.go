// Package stages implements the transformations the workflow engine sequences.
//
// Every stage receives a snapshot of the state and returns an updated copy.
// Collaborator failures never escape a stage: they are wrapped in a
// *domain.CollaboratorError and recorded on the returned state.
package stages

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// Collaborator names reported in stage errors.
const (
	CollaboratorGeneration = "generation"
	CollaboratorSearch     = "search"
	CollaboratorRetrieval  = "retrieval"
	CollaboratorConversion = "conversion"
	CollaboratorPublish    = "publish"
	CollaboratorPrompt     = "prompt"
)

// DefaultSearchCount is the number of results requested per search.
const DefaultSearchCount = 5

// Runtime carries the collaborators shared by the stages.
// Retriever and Publisher are optional.
type Runtime struct {
	Generator ports.Generator
	Searcher  ports.Searcher
	Retriever ports.Retriever
	Converter ports.Converter
	Publisher ports.Publisher
	Prompts   *prompts.Library
	Logger    *slog.Logger

	// Now stamps output file names. Defaults to the local wall clock.
	Now func() time.Time

	// SearchCount overrides DefaultSearchCount when positive.
	SearchCount int
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rt.Logger
}

func (rt *Runtime) now() time.Time {
	if rt.Now == nil {
		return time.Now()
	}
	return rt.Now()
}

func (rt *Runtime) searchCount() int {
	if rt.SearchCount > 0 {
		return rt.SearchCount
	}
	return DefaultSearchCount
}

func (rt *Runtime) library() *prompts.Library {
	if rt.Prompts == nil {
		rt.Prompts = prompts.MustNew()
	}
	return rt.Prompts
}

// Pipeline returns the four stages in execution order.
func Pipeline(rt *Runtime) []ports.Stage {
	return []ports.Stage{
		&Plan{rt: rt},
		&Research{rt: rt},
		&Report{rt: rt},
		&Convert{rt: rt},
	}
}

// ErrorHandler returns the stage executed on the error path.
func ErrorHandler(rt *Runtime) ports.Stage {
	return &HandleError{rt: rt}
}

func collaboratorFailure(state domain.WorkflowState, stage domain.StageName, collaborator string, err error) domain.WorkflowState {
	return state.Fail(stage, &domain.CollaboratorError{
		Stage:        stage,
		Collaborator: collaborator,
		Err:          err,
	})
}

// baseVars fills the template variables every prompt shares.
func baseVars(state domain.WorkflowState) prompts.Vars {
	labels := make([]string, len(state.Fields))
	for i, f := range state.Fields {
		labels[i] = f.Label()
	}
	return prompts.Vars{
		Fields:       labels,
		Language:     string(state.Language),
		LanguageName: state.Language.Name(),
		Depth:        string(state.Depth),
		RAGDocuments: state.RAGDocuments,
	}
}

// render builds a prompt from a system template and a task template.
func (rt *Runtime) render(system, task string, vars prompts.Vars) (ports.Prompt, error) {
	lib := rt.library()
	sys, err := lib.Render(system, vars)
	if err != nil {
		return ports.Prompt{}, err
	}
	text, err := lib.Render(task, vars)
	if err != nil {
		return ports.Prompt{}, err
	}
	return ports.Prompt{System: sys, Text: text}, nil
}
