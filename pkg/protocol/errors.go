package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed = errors.New("protocol connection closed")
	ErrConnectionLost   = errors.New("protocol connection lost")
	ErrDuplicateHandler = errors.New("event handler already registered")
)

// Error codes reported by the remote end. The set is open; these are the
// codes the client branches on.
const (
	ErrorCodeInvalidArgument = "invalid argument"
	ErrorCodeInvalidSelector = "invalid selector"
	ErrorCodeNoSuchFrame     = "no such frame"
	ErrorCodeNoSuchNode      = "no such node"
	ErrorCodeUnknownCommand  = "unknown command"
	ErrorCodeUnknownError    = "unknown error"
)

// CommandError is a structured failure reported by the remote end for a
// specific command. It is never converted into an empty or default result.
type CommandError struct {
	Method     string
	Code       string
	Message    string
	Stacktrace string
}

// Error implements the error interface
func (e *CommandError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: [%s] %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsCode checks whether an error is a CommandError carrying a specific code
func IsCode(err error, code string) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Code == code
}

// ErrorCode extracts the remote error code from an error, or "" when the
// error did not originate from the remote end.
func ErrorCode(err error) string {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return ""
	}
	return cmdErr.Code
}

// IsConnectionError returns true if the error indicates a lost or closed
// connection rather than a command-level failure.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrConnectionClosed)
}
