package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Not found, or validation findings
	ExitCommandError = 2 // Bad flags, config or storage
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// GetExitCode extracts the exit code from an error. Errors that are not
// ExitErrors map to ExitFailure.
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

// OutputFormatter renders command results as indented JSON or as text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// JSON writes v as indented JSON.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Records writes a collection.
func (f *OutputFormatter) Records(apps []application.Application) error {
	if f.Format == "json" {
		if apps == nil {
			apps = []application.Application{}
		}
		return f.JSON(apps)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH\tOWNER\tVALID")
	for _, app := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", app.AppName, app.AppData.AppPath, app.AppData.AppOwner, app.AppData.IsValid)
	}
	return tw.Flush()
}

// Record writes a single record.
func (f *OutputFormatter) Record(app application.Application) error {
	if f.Format == "json" {
		return f.JSON(app)
	}
	return f.Records([]application.Application{app})
}

// Message writes a human-readable line in text mode, or {"message": ...} in
// JSON mode.
func (f *OutputFormatter) Message(color, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if f.Format == "json" {
		return f.JSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(f.Writer, Colorize(f.Writer, msg, color))
	return err
}

// VerboseLog writes to ErrWriter when verbose output is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
