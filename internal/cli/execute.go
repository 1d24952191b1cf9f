package cli

import (
	"context"
	"io"

	"github.com/roach88/vendorsync/internal/errors"
)

// Execute runs the CLI with args and returns the process exit code. Errors
// are written to stderr in the format selected by --format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	// Commands return *ExitError; anything else is cobra rejecting the
	// command line itself.
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		err = WrapExitError(ExitCommandError, "invalid command", err)
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stderr, Verbose: opts.Verbose}
	_ = f.ReportError(err)
	return GetExitCode(err)
}
