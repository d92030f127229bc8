package pipeline

import (
	"errors"
	"fmt"

	"github.com/fpang/veo3-storyboard/internal/auth"
)

// Stage names one of the three model-backed pipeline steps.
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageAnalyze  Stage = "analyze"
	StageAnnotate Stage = "annotate"
	StageFinalize Stage = "finalize"
)

// ErrNoImage is returned by Ingest when neither an image nor a generation
// prompt was supplied.
var ErrNoImage = errors.New("no image supplied: upload an image or enter a generation prompt")

// ErrNoOutput is wrapped when a backend completes without producing an image.
var ErrNoOutput = errors.New("backend returned no output")

// ErrNotConfigured is wrapped when an optional backend is missing.
var ErrNotConfigured = errors.New("backend not configured")

// UpstreamError reports a failed call to a model backend or to the URL it
// returned.
type UpstreamError struct {
	Collaborator string
	Kind         auth.ValidationErrorType
	Timeout      bool
	Err          error
}

func (e *UpstreamError) Error() string {
	msg := e.Collaborator + " call failed"
	if e.Timeout {
		msg = e.Collaborator + " call timed out"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PreconditionError reports a stage invoked before the state it needs
// exists. The session is left untouched.
type PreconditionError struct {
	Stage   Stage
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Stage, e.Missing)
}

// StageError wraps any failure inside analyze, annotate or finalize with the
// name of the stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Kind() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind returns the caller-facing error name for the stage.
func (e *StageError) Kind() string {
	switch e.Stage {
	case StageAnalyze:
		return "AnalysisError"
	case StageAnnotate:
		return "AnnotationError"
	case StageFinalize:
		return "SpecificationError"
	default:
		return "StageError"
	}
}

// IsStage reports whether err is a StageError for stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
