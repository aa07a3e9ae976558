package fontlib

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. On failure the error carries the last line the
// command wrote to stderr, which for Python tools is the exception message.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, &CommandError{Err: err, Message: msg}
		}
		return nil, &CommandError{Err: err}
	}
	return stdout.Bytes(), nil
}

// CommandError is a failed external command.
type CommandError struct {
	Err     error
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// wrapModule names the fontTools module that failed.
func wrapModule(module string, err error) error {
	return fmt.Errorf("%s: %w", module, err)
}
