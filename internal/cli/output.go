package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation was refused (not found, forbidden, invalid) or a scenario failed
	ExitCommandError = 2 // Command error (bad flags, unreachable database, etc.)
)

// Error codes reported in CLI responses.
const (
	CodeNotFound   = "not_found"
	CodeForbidden  = "forbidden"
	CodeValidation = "validation"
	CodeInternal   = "error"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode classifies engine errors for CLI output.
func errorCode(err error) string {
	switch {
	case wave.IsNotFound(err):
		return CodeNotFound
	case wave.IsForbidden(err):
		return CodeForbidden
	case wave.IsValidation(err):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	renderText(w io.Writer)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message, field string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Field:   field,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && field != "" {
		fmt.Fprintf(f.Writer, "Field: %s\n", field)
	}
	return nil
}

// Fail reports an engine error and returns the ExitError the command
// should return. Refusals exit with ExitFailure, anything else with
// ExitCommandError.
func (f *OutputFormatter) Fail(message string, err error) error {
	code := errorCode(err)

	var field string
	var ve *wave.ValidationError
	if errors.As(err, &ve) {
		field = ve.Field
	}
	if outErr := f.Error(code, err.Error(), field); outErr != nil {
		return outErr
	}

	exit := ExitFailure
	if code == CodeInternal {
		exit = ExitCommandError
	}
	return WrapExitError(exit, message, err)
}
