//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ExitCodeNotStarted is reported when a command could not be started at all.
const ExitCodeNotStarted = -1

// Command describes an external process invocation.
type Command struct {
	// Name is the executable, looked up in PATH.
	Name string
	// Args are passed verbatim, without a shell.
	Args []string
	// Env entries (KEY=VALUE) are appended to the current environment.
	Env []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command the way it would be typed in a shell,
// environment assignments first.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args)+1)
	parts = append(parts, c.Env...)
	parts = append(parts, quote(c.Name))

	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}

	return strings.Join(parts, " ")
}

// quote wraps s in single quotes when a shell would split or expand it.
func quote(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsAny(s, " \t\n'\"\\$`*?;&|<>()[]{}!#~") {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result is the outcome of running a Command.
type Result struct {
	// ExitCode is the process exit status, or ExitCodeNotStarted.
	ExitCode int
	// Output holds the combined stdout and stderr of the process.
	Output []byte
	// Err is set when the process could not be started or was interrupted.
	// A plain non-zero exit leaves Err nil.
	Err error
}

// Succeeded reports a zero exit status.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// Runner executes external commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner runs commands with os/exec, echoing their output.
type ExecRunner struct {
	// Stdout receives the process output as it is produced. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives the process error stream. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewExecRunner returns a runner that echoes output to the terminal.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run starts the command and waits for it. It never returns an error for a
// non-zero exit: the status is in Result.ExitCode.
func (r *ExecRunner) Run(ctx context.Context, c Command) Result {
	var (
		captured bytes.Buffer
		stdout   = r.Stdout
		stderr   = r.Stderr
	)

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	//nolint:gosec // Commands are assembled by the packager from fixed templates.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = io.MultiWriter(stdout, &captured)
	cmd.Stderr = io.MultiWriter(stderr, &captured)

	err := cmd.Run()
	result := Result{Output: captured.Bytes()}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Err = fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
		}
	default:
		result.ExitCode = ExitCodeNotStarted
		result.Err = fmt.Errorf("start %s: %w", c.Name, err)
	}

	return result
}
