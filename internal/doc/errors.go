package doc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a ProcessingError.
type Kind int

const (
	// KindInput marks unusable input: unreadable file, unrecognized
	// extension, missing content.
	KindInput Kind = iota

	// KindTypeMismatch marks a stage receiving an item it cannot operate
	// on. This is an engineering bug and is surfaced, not swallowed.
	KindTypeMismatch

	// KindExternal marks a downstream failure: service error, subprocess
	// non-zero exit.
	KindExternal

	// KindTimeout marks an elapsed bound on an external call.
	KindTimeout

	// KindParse marks external output that did not fit the expected shape.
	KindParse

	// KindCancelled marks work abandoned because the caller cancelled the
	// batch.
	KindCancelled
)

var kindNames = [...]string{
	KindInput:        "input",
	KindTypeMismatch: "type_mismatch",
	KindExternal:     "external",
	KindTimeout:      "timeout",
	KindParse:        "parse",
	KindCancelled:    "cancelled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Sentinel errors surfaced by the dispatcher.
var (
	// ErrNoPipeline indicates an input extension with no registered
	// pipeline.
	ErrNoPipeline = errors.New("no pipeline for extension")

	// ErrDuplicateInput indicates two inputs resolving to the same key.
	ErrDuplicateInput = errors.New("duplicate input filename")
)

// Frame is one captured stack frame.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// ProcessingError is the per-input failure record. It never aborts a batch;
// the executor collects it keyed by the failing input.
type ProcessingError struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`

	// Message is the human-readable failure description.
	Message string `json:"exc"`

	// Stack holds the frames captured where the error was materialized.
	Stack []Frame `json:"traceback"`

	// Stage names the pipeline stage that failed, empty for failures
	// outside any stage.
	Stage string `json:"stage,omitempty"`

	// File is the batch key of the failing input.
	File string `json:"file"`

	cause error
}

func (e *ProcessingError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *ProcessingError) Unwrap() error {
	return e.cause
}

// NewProcessingError wraps err into a ProcessingError of the given kind,
// capturing the current stack.
func NewProcessingError(kind Kind, stage string, err error) *ProcessingError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ProcessingError{
		Kind:    kind,
		Message: msg,
		Stack:   captureStack(3),
		Stage:   stage,
		cause:   err,
	}
}

// Errorf builds a ProcessingError from a format string.
func Errorf(kind Kind, stage, format string, args ...any) *ProcessingError {
	return NewProcessingError(kind, stage, fmt.Errorf(format, args...))
}

// Promote turns any error into a ProcessingError. Existing ProcessingErrors
// keep their kind and stack; stage and file are filled in when empty. Context
// sentinels map to KindCancelled and KindTimeout; everything else defaults to
// KindExternal, since stage work failing unexpectedly is almost always a
// downstream fault.
func Promote(err error, stage, file string) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		if pe.Stage == "" {
			pe.Stage = stage
		}
		if pe.File == "" {
			pe.File = file
		}
		return pe
	}

	kind := KindExternal
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, ErrNoPipeline), errors.Is(err, ErrDuplicateInput):
		kind = KindInput
	}

	pe = NewProcessingError(kind, stage, err)
	pe.File = file
	return pe
}

// captureStack records the caller frames above skip, bounded to keep error
// payloads small.
func captureStack(skip int) []Frame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		fr, more := frames.Next()
		out = append(out, Frame{
			Function: fr.Function,
			File:     fr.File,
			Line:     fr.Line,
		})
		if !more {
			break
		}
	}
	return out
}
