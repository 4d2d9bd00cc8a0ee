// Package command runs external tools and captures their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"smartctlexporter/internal/logger"
)

// maxStderr bounds how much stderr is kept on an Error.
const maxStderr = 512

// Runner executes a program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Error describes a failed invocation. Stdout, if any, is still returned
// alongside it by Run so callers can decide whether the output is usable.
type Error struct {
	Command  string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %q failed", e.Command)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (stderr: %s)", e.Stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExecRunner runs programs with os/exec. A zero Timeout means no bound
// beyond the caller's context.
type ExecRunner struct {
	Timeout time.Duration
}

// Run starts name with args and waits for it to finish.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log := logger.WithComponent("command")

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	line := strings.Join(append([]string{name}, args...), " ")
	log.Trace().
		Str("command", line).
		Dur("duration", time.Since(start)).
		Int("stdout_bytes", stdout.Len()).
		Str("stderr", stderr.String()).
		Msg("Command finished")

	if err == nil {
		return stdout.Bytes(), nil
	}

	cmdErr := &Error{
		Command:  line,
		ExitCode: -1,
		Stderr:   truncate(strings.TrimSpace(stderr.String()), maxStderr),
		Err:      err,
	}

	// A cancelled or expired context kills the process; report the context
	// error rather than "signal: killed".
	if ctxErr := ctx.Err(); ctxErr != nil {
		cmdErr.Err = ctxErr
		return stdout.Bytes(), cmdErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
		cmdErr.Err = nil
	}
	return stdout.Bytes(), cmdErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
