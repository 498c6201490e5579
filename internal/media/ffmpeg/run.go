package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"mixdown/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithRunner overrides the command runner used for non-streaming invocations.
func WithRunner(runner services.CommandRunner) Option {
	return func(c *CLI) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
	runner services.CommandRunner
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", runner: services.ExecRunner{}}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Run executes ffmpeg without line streaming and returns the captured output.
// The combined stdout/stderr tail is embedded in the error on failure.
func (c *CLI) Run(ctx context.Context, args ...string) (services.CommandResult, error) {
	result, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "ffmpeg", "run", services.DiagnosticTail(result.Stderr), err)
	}
	return result, nil
}

// RunStreaming executes ffmpeg and feeds every diagnostic line to onLine as it
// arrives. ffmpeg writes all progress and diagnostics to stderr, which is
// merged with stdout for scanning. It returns the bounded tail of that output.
func (c *CLI) RunStreaming(ctx context.Context, args []string, onLine func(string)) (string, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ffmpeg", "start", c.binary, err)
	}

	var tail []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCarriageLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > 64 {
			tail = tail[1:]
		}
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()

	captured := services.DiagnosticTail(strings.Join(tail, "\n"))
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return captured, services.Wrap(services.ErrTimeout, "ffmpeg", "run", "cancelled", ctx.Err())
		}
		return captured, services.Wrap(services.ErrExternalTool, "ffmpeg", "run", captured, err)
	}
	if scanErr != nil {
		return captured, fmt.Errorf("read ffmpeg output: %w", scanErr)
	}
	return captured, nil
}

// scanCarriageLines splits on both \n and \r so that ffmpeg stats lines,
// which are redrawn in place with carriage returns, surface individually.
func scanCarriageLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Analyze runs the pass-one loudness measurement, retrying without the soxr
// resampler when the local build rejects it.
func (c *CLI) Analyze(ctx context.Context, input string, targets LoudnessTargets) (Measurement, error) {
	result, err := c.runner.Run(ctx, c.binary, AnalyzeArgs(input, targets, true)...)
	if err != nil && strings.Contains(result.Stderr, "soxr") {
		result, err = c.runner.Run(ctx, c.binary, AnalyzeArgs(input, targets, false)...)
	}
	if err != nil {
		return Measurement{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "loudnorm analyze", services.DiagnosticTail(result.Stderr), err)
	}
	measurement, err := ExtractMeasurement(result.Stderr + result.Stdout)
	if err != nil {
		return Measurement{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "loudnorm analyze", "", err)
	}
	return measurement, nil
}

// Normalize runs the pass-two loudnorm apply using measured values.
func (c *CLI) Normalize(ctx context.Context, input, output string, m Measurement, targets LoudnessTargets, comp Compression, onLine func(string)) error {
	args := ApplyArgs(input, output, m, targets, comp, true)
	_, err := c.RunStreaming(ctx, args, onLine)
	if err != nil && errors.Is(err, services.ErrExternalTool) {
		args = ApplyArgs(input, output, m, targets, comp, false)
		_, err = c.RunStreaming(ctx, args, onLine)
	}
	return err
}
