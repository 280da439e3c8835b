package service

import (
	"errors"
	"fmt"
)

// FetchError is a failed read from the backend.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Op, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// PersistError is a failed write. Local session state is kept so the action can be retried.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistError) Unwrap() error { return e.Err }

// EvaluationError is a failed call to the AI services.
type EvaluationError struct {
	Op  string
	Err error
}

func (e *EvaluationError) Error() string { return fmt.Sprintf("evaluate %s: %v", e.Op, e.Err) }
func (e *EvaluationError) Unwrap() error { return e.Err }

var (
	// ErrStaleSession marks a result that arrived after its tutor session was torn down. It is dropped, never shown.
	ErrStaleSession = errors.New("stale tutor session")

	ErrAnswerLocked          = errors.New("answer already checked")
	ErrSubmitPending         = errors.New("a submission is in progress")
	ErrQuizIncomplete        = errors.New("not all questions are answered")
	ErrQuizCompleted         = errors.New("quiz already submitted")
	ErrNotReady              = errors.New("session is not ready")
	ErrQuestionOutOfRange    = errors.New("question number out of range")
	ErrInvalidOption         = errors.New("option does not belong to the question")
	ErrNoTutor               = errors.New("no tutor conversation for the current question")
	ErrConversationConcluded = errors.New("tutor conversation has concluded")
	ErrTutorBusy             = errors.New("tutor is still answering")
	ErrSessionNotFound       = errors.New("quiz session not found")
)

var ErrEmptyMessage = errors.New("message is empty")
