package merge

import (
	"errors"
	"fmt"
)

// Error kinds. A failed job's error matches exactly one of these with errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrProbeFailure   = errors.New("duration probe failed")
	ErrProcessFailure = errors.New("media tool failed")
	ErrIO             = errors.New("i/o error")
)

// errCancelled unwinds a step after cancellation was observed. It never
// reaches an Outcome.
var errCancelled = errors.New("merge cancelled")

// Stage names used in errors and logs.
const (
	StageValidate = "validate"
	StageConcat   = "concat_audio"
	StageProbe    = "probe_duration"
	StageCompose  = "compose_video"
)

// StageError is a stage-aware pipeline error.
type StageError struct {
	Stage   string
	Kind    error
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func invalidInput(message string, err error) error {
	return &StageError{Stage: StageValidate, Kind: ErrInvalidInput, Message: message, Err: err}
}
