package pitchmix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on pipes after the process is
// killed by context cancellation.
const waitDelay = 2 * time.Second

// commandError is a failed engine process with its captured stderr.
type commandError struct {
	Name   string
	Stderr string
	Err    error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *commandError) Unwrap() error { return e.Err }

// runCommand executes name with args, capturing stdout and stderr. See
// runCmd for the error contract.
func runCommand(ctx context.Context, monitor *ResourceMonitor, name string, args ...string) ([]byte, error) {
	return runCmd(ctx, monitor, exec.CommandContext(ctx, name, args...))
}

// runCmd runs a command built with ctx. A binary that cannot be started
// yields an error wrapping ErrEngineUnavailable; a non-zero exit yields a
// *commandError. When ctx is done, before or during the run, the error is
// a *commandError wrapping ctx.Err() and never ErrEngineUnavailable.
func runCmd(ctx context.Context, monitor *ResourceMonitor, cmd *exec.Cmd) ([]byte, error) {
	name := cmd.Path
	if len(cmd.Args) > 0 {
		name = cmd.Args[0]
	}
	if err := ctx.Err(); err != nil {
		return nil, &commandError{Name: name, Err: err}
	}

	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &commandError{Name: name, Err: ctxErr}
		}
		return nil, fmt.Errorf("%w: start %s: %w", ErrEngineUnavailable, name, err)
	}

	pid := cmd.Process.Pid
	monitor.TrackProcess(pid)
	defer monitor.UntrackProcess(pid)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return stdout.Bytes(), &commandError{Name: name, Stderr: stderr.String(), Err: err}
	}

	return stdout.Bytes(), nil
}

// stderrOf extracts captured stderr from a runCommand error.
func stderrOf(err error) string {
	var ce *commandError
	if errors.As(err, &ce) {
		return ce.Stderr
	}
	return ""
}

// checkBinary verifies that a binary runs with the given version flag.
func checkBinary(ctx context.Context, path, versionFlag string) error {
	if path == "" {
		return fmt.Errorf("%w: empty binary path", ErrEngineUnavailable)
	}
	if _, err := runCommand(ctx, nil, path, versionFlag); err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", ErrEngineUnavailable, path, versionFlag, err)
	}
	return nil
}

// quoteArgs renders a command line for debug logs.
func quoteArgs(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " ;[]'\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
