// Package whisper wraps speech-to-text transcription with word-level
// timestamps, backed by the faster-whisper Python package through an
// embedded helper script.
package whisper

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mixdown/internal/align"
	"mixdown/internal/services"
)

//go:embed transcribe.py
var transcribeScript []byte

// Result is one transcription: word anchors plus the detected track length.
type Result struct {
	Tokens   []align.Token
	Duration float64
}

// Client defines transcription behaviour.
type Client interface {
	Transcribe(ctx context.Context, inputPath string) (Result, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithPython overrides the python interpreter.
func WithPython(python string) Option {
	return func(c *CLI) {
		if python != "" {
			c.python = python
		}
	}
}

// WithModel selects the whisper model size.
func WithModel(model string) Option {
	return func(c *CLI) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLanguage pins the transcription language; "auto" lets the model detect.
func WithLanguage(language string) Option {
	return func(c *CLI) {
		if language != "" {
			c.language = language
		}
	}
}

// WithRunner overrides process execution for tests.
func WithRunner(runner services.CommandRunner) Option {
	return func(c *CLI) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// CLI shells out to the embedded transcription helper.
type CLI struct {
	python   string
	model    string
	language string
	runner   services.CommandRunner
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		python:   "python",
		model:    "small",
		language: "auto",
		runner:   services.ExecRunner{},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcribe runs speech-to-text over inputPath and returns word anchors
// sorted as emitted. The helper script is materialized next to the input so
// relative runs behave under any working directory.
func (c *CLI) Transcribe(ctx context.Context, inputPath string) (Result, error) {
	if strings.TrimSpace(inputPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "whisper", "transcribe", "input path required", nil)
	}

	scriptPath := filepath.Join(filepath.Dir(inputPath), ".transcribe.py")
	if err := os.WriteFile(scriptPath, transcribeScript, 0o644); err != nil {
		return Result{}, fmt.Errorf("whisper: write helper script: %w", err)
	}
	defer os.Remove(scriptPath)

	result, err := c.runner.Run(ctx, c.python, scriptPath,
		"--model", c.model,
		"--language", c.language,
		inputPath)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "whisper", "transcribe", "cancelled", ctx.Err())
		}
		detail := services.DiagnosticTail(result.Stderr)
		if detail == "" {
			detail = services.DiagnosticTail(result.Stdout)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", detail, err)
	}

	return parseOutput(result.Stdout)
}

func parseOutput(stdout string) (Result, error) {
	var payload struct {
		Error    string  `json:"error"`
		Duration float64 `json:"duration"`
		Words    []struct {
			Start float64 `json:"start"`
			Word  string  `json:"word"`
		} `json:"words"`
	}
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "no output from helper", nil)
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return Result{}, fmt.Errorf("whisper: parse output: %w", err)
	}
	if payload.Error != "" {
		return Result{}, services.Wrap(services.ErrValidation, "whisper", "transcribe", payload.Error, nil)
	}

	tokens := make([]align.Token, 0, len(payload.Words))
	for _, word := range payload.Words {
		text := strings.TrimSpace(word.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, align.Token{Time: word.Start, Text: text})
	}
	return Result{Tokens: tokens, Duration: payload.Duration}, nil
}

var _ Client = (*CLI)(nil)
