package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var ErrAborted = errors.New("pipeline aborted")

// AbortError reports the stage that stopped a run and the artifacts already
// on disk when it did.
type AbortError struct {
	Stage     string
	Artifacts []string
	Err       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s at stage %s: %v", ErrAborted, e.Stage, e.Err)
}

func (e *AbortError) Unwrap() []error {
	return []error{ErrAborted, e.Err}
}

// PlanError is returned by Plan for malformed stage graphs.
type PlanError struct {
	Stage  string
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("invalid stage plan: %s: %s", e.Stage, e.Reason)
}

func cycleError(stuck []string) error {
	return &PlanError{Stage: strings.Join(stuck, ", "), Reason: "dependency cycle"}
}
