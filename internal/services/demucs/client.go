// Package demucs wraps the Demucs source-separation tool, invoked as a
// Python module.
package demucs

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mixdown/internal/services"
)

var commandContext = exec.CommandContext

// stemNames are the outputs Demucs models produce; anything else found in
// the output tree is ignored.
var stemNames = map[string]bool{
	"vocals": true,
	"drums":  true,
	"bass":   true,
	"other":  true,
	"piano":  true,
}

// progressKeywords select the Demucs stderr lines worth surfacing as job
// logs; the rest is tqdm redraw noise.
var progressKeywords = []string{"loading", "separating", "running", "saving", "done"}

// Client defines stem separation behaviour.
type Client interface {
	Separate(ctx context.Context, inputPath, outputDir string, onLog func(string)) (map[string]string, error)
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

// WithModel overrides the default separation model.
func WithModel(model string) Option {
	return func(c *CLI) {
		if model != "" {
			c.model = model
		}
	}
}

// CLI invokes python -m demucs.separate.
type CLI struct {
	python string
	model  string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{python: "python", model: "htdemucs"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Separate runs Demucs on inputPath, collecting the produced stems flat into
// outputDir. It returns a map of stem name to file path. Diagnostic lines
// matching the progress keywords are passed to onLog as they arrive.
func (c *CLI) Separate(ctx context.Context, inputPath, outputDir string, onLog func(string)) (map[string]string, error) {
	if inputPath == "" {
		return nil, services.Wrap(services.ErrValidation, "demucs", "separate", "input path required", nil)
	}
	if outputDir == "" {
		return nil, services.Wrap(services.ErrValidation, "demucs", "separate", "output directory required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("demucs: create output dir: %w", err)
	}

	args := []string{"-m", "demucs.separate", "-n", c.model, "-d", "cpu", "-o", outputDir, inputPath}
	cmd := commandContext(ctx, c.python, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "demucs", "start", c.python, err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > 64 {
			tail = tail[1:]
		}
		if onLog == nil {
			continue
		}
		lower := strings.ToLower(line)
		for _, keyword := range progressKeywords {
			if strings.Contains(lower, keyword) {
				onLog(line)
				break
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		detail := services.DiagnosticTail(strings.Join(tail, "\n"))
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "demucs", "separate", "cancelled", ctx.Err())
		}
		return nil, services.Wrap(services.ErrExternalTool, "demucs", "separate", detail, err)
	}

	stems, err := collectStems(outputDir)
	if err != nil {
		return nil, err
	}
	if len(stems) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "demucs", "separate", "no stem files produced", nil)
	}
	return stems, nil
}

// collectStems flattens Demucs's model/track/stem.wav tree into outputDir
// and removes the nested directories.
func collectStems(outputDir string) (map[string]string, error) {
	stems := make(map[string]string)
	err := filepath.WalkDir(outputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if filepath.Ext(entry.Name()) != ".wav" || !stemNames[strings.ToLower(name)] {
			return nil
		}
		flat := filepath.Join(outputDir, entry.Name())
		if path != flat {
			if err := os.Rename(path, flat); err != nil {
				return fmt.Errorf("demucs: move stem %s: %w", name, err)
			}
		}
		stems[strings.ToLower(name)] = flat
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return stems, nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			os.RemoveAll(filepath.Join(outputDir, entry.Name()))
		}
	}
	return stems, nil
}

var _ Client = (*CLI)(nil)
