package services

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// CommandResult captures one external command invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution for testability. Implementations
// must honour ctx cancellation.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result, err
}

// Tail caps diagnostic text to the trailing maxLines lines and maxBytes
// bytes, whichever is smaller. Verbose tool output must never grow a job
// record without bound.
func Tail(text string, maxLines, maxBytes int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	if maxLines > 0 {
		lines := strings.Split(text, "\n")
		if len(lines) > maxLines {
			lines = lines[len(lines)-maxLines:]
		}
		text = strings.Join(lines, "\n")
	}
	if maxBytes > 0 && len(text) > maxBytes {
		text = text[len(text)-maxBytes:]
		if idx := strings.IndexByte(text, '\n'); idx >= 0 && idx < len(text)-1 {
			text = text[idx+1:]
		}
	}
	return text
}

// DiagnosticTail applies the repository-wide default bounds for captured
// subprocess output: the last 50 lines and at most 2000 bytes.
func DiagnosticTail(text string) string {
	return Tail(text, 50, 2000)
}
