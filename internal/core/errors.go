package core

import "errors"

// Error codes for per-line domain errors. None of them is fatal to the
// connection.
const (
	ErrCodeUnknownCommand = "unknown_command"
	ErrCodeNeedMoreParams = "need_more_params"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNeedMoreParams = errors.New("not enough parameters")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Verb    string
	Message string
}

func (e *CoreError) Error() string {
	if e.Verb == "" {
		return e.Message
	}
	return e.Verb + ": " + e.Message
}

// Unwrap maps the code back to its sentinel so callers can use errors.Is.
func (e *CoreError) Unwrap() error {
	switch e.Code {
	case ErrCodeUnknownCommand:
		return ErrUnknownCommand
	case ErrCodeNeedMoreParams:
		return ErrNeedMoreParams
	default:
		return nil
	}
}

func coreError(code, verb, msg string) *CoreError {
	return &CoreError{Code: code, Verb: verb, Message: msg}
}
