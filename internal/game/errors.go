package game

import "fmt"

// ErrorKind classifies why a command was rejected or a match aborted.
type ErrorKind string

const (
	// ErrIllegalCommand covers wrong phase, wrong turn, and ownership
	// violations. The command never mutates state.
	ErrIllegalCommand ErrorKind = "ILLEGAL_COMMAND"
	// ErrInvalidTarget means the named target fails a filter or zone
	// constraint.
	ErrInvalidTarget ErrorKind = "INVALID_TARGET"
	// ErrInsufficientDon means a cost exceeds the available active DON!!.
	ErrInsufficientDon ErrorKind = "INSUFFICIENT_DON"
	// ErrScriptExecution means a script contained an unknown or malformed
	// construct. Only the offending script aborts.
	ErrScriptExecution ErrorKind = "SCRIPT_EXECUTION_ERROR"
	// ErrStateCorruption means an internal invariant check failed. Fatal
	// for the match: it indicates a logic bug, not a player error.
	ErrStateCorruption ErrorKind = "STATE_CORRUPTION"
)

// CommandError is a structured rejection reason for a player command.
type CommandError struct {
	Kind    ErrorKind
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func illegalf(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrIllegalCommand, Message: fmt.Sprintf(format, args...)}
}

func invalidTargetf(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrInvalidTarget, Message: fmt.Sprintf(format, args...)}
}

func insufficientf(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrInsufficientDon, Message: fmt.Sprintf(format, args...)}
}

func scriptErrf(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrScriptExecution, Message: fmt.Sprintf(format, args...)}
}

func corruptionf(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrStateCorruption, Message: fmt.Sprintf(format, args...)}
}
