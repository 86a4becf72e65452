package action

import "errors"

var (
	ErrUnknownType    = errors.New("no handler registered for action type")
	ErrInvalidType    = errors.New("action type must not be empty")
	ErrSyncInProgress = errors.New("sync pass already in progress")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as non-retryable: the action is dropped on first failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
