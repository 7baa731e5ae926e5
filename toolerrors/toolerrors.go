// Package toolerrors provides a structured error type for tool-call
// failures inside the agentic loop. Unlike construction-time errors (which
// are plain sentinel-wrapped errors, see package graph and package react),
// a ToolError is folded into a tool-role ChatMessage so the LLM can see and
// react to it; it still supports errors.Is/As through Unwrap.
package toolerrors

import (
	"errors"
	"fmt"
)

// ToolError represents a structured tool failure. Tool errors may chain via
// Cause to preserve diagnostics across retries or nested agent-as-tool
// calls.
type ToolError struct {
	Message string
	Cause   *ToolError
}

// New constructs a ToolError from a message.
func New(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// Errorf formats a ToolError like fmt.Errorf.
func Errorf(format string, args ...any) *ToolError {
	return New(fmt.Sprintf(format, args...))
}

// FromError converts an arbitrary error into a ToolError chain, preserving
// any existing ToolError found via errors.As and otherwise wrapping the
// error's message and its Unwrap chain.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the causal chain for errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}
