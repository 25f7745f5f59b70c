package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// exitCodes maps categories onto process exit codes. Unlisted categories and
// unclassified errors exit with 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryRefused:    3,
	CategoryNotFound:   4,
	CategoryConfig:     7,
	CategoryTransport:  8,
	CategoryTabs:       8,
	CategoryStorage:    9,
	CategoryEventStore: 9,
	CategoryInternal:   10,
	CategoryDaemon:     12,
	CategoryRuntime:    12,
}

// CLIErrorAdapter prints a failed command's error and terminates the process.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if c, ok := AsClassified(err); ok {
		if code, mapped := exitCodes[c.Category()]; mapped {
			return code
		}
	}
	return 1
}

// FormatError renders err for a terminal. Without -v only the message is
// shown; internal errors are reduced to a pointer at -v.
func (a *CLIErrorAdapter) FormatError(err error) string {
	c, ok := AsClassified(err)
	switch {
	case err == nil:
		return ""
	case !ok:
		return "Error: " + err.Error()
	case a.verbose:
		return c.Error()
	case c.Category() == CategoryInternal:
		return "Internal error occurred (use -v for details)"
	case c.IsTransient():
		return fmt.Sprintf("Error: %s (temporary, try again)", c.Message())
	default:
		return "Error: " + c.Message()
	}
}

// HandleError is a no-op for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	c, classified := AsClassified(err)
	switch {
	case !classified:
		a.logger.Error("Unclassified error", "error", err)
	case a.verbose || c.IsFatal():
		attrs := []slog.Attr{slog.String("category", string(c.Category()))}
		if c.CanRetry() {
			attrs = append(attrs, slog.Bool("retryable", true))
		}
		a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(c.Severity()), c.Message(), attrs...)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}
