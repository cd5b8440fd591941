package domain

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a run is requested before setup.
var ErrNotInitialized = errors.New("workflow not initialized: call Setup before Run")

// ErrRunNotFound is returned when a run ID cannot be found in the checkpoint store.
var ErrRunNotFound = errors.New("run not found")

// ErrRunTerminated is returned when resuming a run that already reached a terminal state.
var ErrRunTerminated = errors.New("run already terminated")

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// NotInitializedError reports a Run call without a prior Setup.
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string { return ErrNotInitialized.Error() }

func (e *NotInitializedError) Is(target error) bool { return target == ErrNotInitialized }

// ConfigurationError reports a missing credential or setting detected before any stage runs.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CollaboratorError wraps a failure raised by an external collaborator during a stage.
type CollaboratorError struct {
	Stage        StageName
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports an output format outside the supported set.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (supported: markdown, pdf, docx)", e.Format)
}

// RunError is returned by a run that terminated through the error handler.
// Its message is the recorded state error, verbatim.
type RunError struct {
	RunID   string
	Stage   StageName
	Message string
}

func (e *RunError) Error() string { return e.Message }
