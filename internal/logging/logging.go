// Package logging wires zerolog for fixupem.
//
// Diagnostic logs always go to stderr or a log file; stdout is reserved for the
// per-file progress lines the user reads.
package logging

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Output destinations.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Config describes how the logger is built.
type Config struct {
	Level  string
	Format string
	Output string
	File   string
}

// Result is returned by NewLogger. Close must be called to release the log file, if any.
type Result struct {
	Logger         zerolog.Logger
	UsingFile      bool
	FilePath       string
	FallbackUsed   bool
	FallbackReason string

	file *os.File
}

// Close releases the log file handle.
func (r *Result) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewLogger builds a logger from cfg, writing to stderr by default.
// If the log file cannot be opened the logger falls back to stderr and the
// reason is recorded in the result instead of failing the run.
func NewLogger(cfg Config) *Result {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, stderr io.Writer) *Result {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	res := &Result{}
	var out io.Writer = stderr

	if cfg.Output == OutputFile && cfg.File != "" {
		f, openErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if openErr != nil {
			res.FallbackUsed = true
			res.FallbackReason = openErr.Error()
		} else {
			res.file = f
			res.UsingFile = true
			res.FilePath = cfg.File
			out = f
		}
	}

	if cfg.Format != FormatJSON && !res.UsingFile {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	res.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return res
}

// ComponentLogger returns a child logger tagged with the component name.
func ComponentLogger(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// NewRunID returns a fresh, time-sortable identifier for one invocation.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// WithRunID attaches a run ID to the logger carried in ctx and returns the new context.
func WithRunID(ctx context.Context, l zerolog.Logger, runID string) context.Context {
	return l.With().Str("run_id", runID).Logger().WithContext(ctx)
}

// PrintFallbackWarning tells the user that file logging was unavailable.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: file logging unavailable (%s), logging to stderr\n", reason)
}
