package quiz

import (
	"errors"
	"fmt"
)

// Tagged failures surfaced to the web layer. All are recoverable there;
// anything else from the store arrives wrapped in a StorageError.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("quiz is not yet available")
	ErrNoQuestions  = errors.New("quiz has no questions")
	ErrForbidden    = errors.New("forbidden")
)

// AlreadyAttemptedError rejects a second attempt at a quiz. It carries the
// existing score's id so callers can redirect straight to the results.
type AlreadyAttemptedError struct {
	ScoreID string
}

func (e *AlreadyAttemptedError) Error() string {
	return "quiz already attempted (score " + e.ScoreID + ")"
}

// StorageError wraps a data-store failure. Handlers surface it as a
// generic message; the wrapped cause stays in the logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
