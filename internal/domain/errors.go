package domain

import (
	"errors"
	"fmt"
)

// Task errors
var (
	ErrTaskNotFound    = errors.New("task: not found")
	ErrTaskNotRunnable = errors.New("task: not runnable")
	ErrTaskInvalid     = errors.New("task: invalid input")
	// ErrTaskMoved means the record left the status the writer expected,
	// usually because another process already finished or failed it.
	ErrTaskMoved       = errors.New("task: status changed by another writer")
	ErrReportNotFound  = errors.New("report: not found")
)

// Object store errors
var (
	ErrKindNotFound   = errors.New("store: unknown kind")
	ErrRecordNotFound = errors.New("store: record not found")
	ErrInvalidField   = errors.New("store: invalid field")
	ErrConstraint     = errors.New("store: constraint violation")
)

// Prompt errors
var (
	ErrPromptNotFound = errors.New("prompt: not found")
)

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindExternalCall    ErrorKind = "external_call"
	KindUnknownDecision ErrorKind = "unknown_decision"
	KindUnknownVerdict  ErrorKind = "unknown_verdict"
	KindRetryRequested  ErrorKind = "retry_requested"
)

// Sentinels matched by errors.Is against a *StageError of the same kind.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrExternalCall    = errors.New("external call failed")
	ErrUnknownDecision = errors.New("unknown decision")
	ErrUnknownVerdict  = errors.New("unknown verdict")
	ErrRetryRequested  = errors.New("retry requested")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:      ErrValidation,
	KindNotFound:        ErrNotFound,
	KindExternalCall:    ErrExternalCall,
	KindUnknownDecision: ErrUnknownDecision,
	KindUnknownVerdict:  ErrUnknownVerdict,
	KindRetryRequested:  ErrRetryRequested,
}

// StageError is the failure half of a stage result. Its Error text is what
// ends up in TaskRecord.ErrorMessage.
type StageError struct {
	Stage   string
	Kind    ErrorKind
	Message string
	Err     error
}

func NewStageError(stage string, kind ErrorKind, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: message, Err: err}
}

func (e *StageError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Stage == "" {
		return msg
	}
	return e.Stage + ": " + msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the ErrorKind carried by err, defaulting to external_call.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindExternalCall
}
