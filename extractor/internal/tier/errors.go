package tier

import "errors"

// Sentinels matched by errors.Is against Result.Err.
var (
	ErrInputInvalid       = errors.New("input invalid")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrNoSelectorMatched  = errors.New("no selector matched")
	ErrValidationRejected = errors.New("validation rejected")
	ErrResourceError      = errors.New("browser resource error")
)

func (k Kind) sentinel() error {
	switch k {
	case InputInvalid:
		return ErrInputInvalid
	case FetchFailed:
		return ErrFetchFailed
	case NoSelectorMatched:
		return ErrNoSelectorMatched
	case ValidationRejected:
		return ErrValidationRejected
	case ResourceError:
		return ErrResourceError
	}
	return nil
}

// Error is a failed Result as a Go error. Msg is the Result's Error string.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind.sentinel() }

// Err returns nil for a success, otherwise an *Error wrapping the sentinel
// for r.Kind.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Msg: r.Error}
}
