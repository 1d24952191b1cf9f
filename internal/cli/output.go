package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/gateway"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Stage or runtime failure (remote error, missing tracker, etc.)
	ExitCommandError = 2 // Command error (invalid flags, missing configuration)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
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

// wrapStageError picks the exit code for err: configuration problems are
// command errors, everything else is a failure.
func wrapStageError(message string, err error) *ExitError {
	if errors.Is(err, errors.ErrConfiguration) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Error codes reported in structured output.
const (
	CodeInternal          = "E000"
	CodeConfiguration     = "E001"
	CodeInsufficientInput = "E002"
	CodeTrackerMissing    = "E003"
	CodeAlreadySeeded     = "E004"
	CodeRemote            = "E005"
	CodeLocked            = "E006"
	CodePrerequisite      = "E007"
	CodeData              = "E008"
)

// ErrorCode classifies err for structured output.
func ErrorCode(err error) string {
	if _, ok := gateway.AsRemoteError(err); ok {
		return CodeRemote
	}
	switch {
	case errors.Is(err, errors.ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, errors.ErrInsufficientInput):
		return CodeInsufficientInput
	case errors.Is(err, errors.ErrTrackerMissing):
		return CodeTrackerMissing
	case errors.Is(err, errors.ErrAlreadyInitialized):
		return CodeAlreadySeeded
	case errors.Is(err, errors.ErrLocked):
		return CodeLocked
	case errors.Is(err, errors.ErrPrerequisite):
		return CodePrerequisite
	case errors.IsAny(err, errors.ErrMissingField, errors.ErrOutOfOrder, errors.ErrPayloadReset):
		return CodeData
	}
	return CodeInternal
}

// OutputFormatter handles text, JSON and YAML output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostics (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard structured response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string   `json:"code"`            // "E001", "E002", etc.
	Message string   `json:"message"`         // human-readable message
	Hints   []string `json:"hints,omitempty"` // operator guidance
	Details any      `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	case "yaml":
		return f.encodeYAML(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format. Hints go to the text
// output after the message.
func (f *OutputFormatter) Error(code, message string, hints []string, details any) error {
	resp := CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: code, Message: message, Hints: hints, Details: details},
	}
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(resp)
	case "yaml":
		return f.encodeYAML(resp)
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	for _, h := range hints {
		fmt.Fprintf(f.Writer, "Hint: %s\n", h)
	}
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// ReportError writes err with its code and hints. With --verbose the full
// error chain, including stack traces, is included as details.
func (f *OutputFormatter) ReportError(err error) error {
	var details any
	if f.Verbose {
		details = fmt.Sprintf("%+v", err)
	}
	return f.Error(ErrorCode(err), err.Error(), errors.GetAllHints(err), details)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encodeYAML(v any) error {
	// Round-trip through JSON so yaml output uses the json field names and
	// custom marshalers of the payload types.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
