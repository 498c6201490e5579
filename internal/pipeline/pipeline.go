// Package pipeline builds the background job bodies that drive external
// media tools. Each adapter factory captures its inputs and returns a
// jobs.PipelineFunc that writes a result artifact into the job workspace.
package pipeline

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/media/ffprobe"
	"mixdown/internal/services"
	"mixdown/internal/services/demucs"
	"mixdown/internal/services/whisper"
	"mixdown/internal/transcache"
)

// Deps aggregates the external collaborators the adapters share.
type Deps struct {
	Config  *config.Config
	FFmpeg  *ffmpeg.CLI
	Demucs  demucs.Client
	Whisper whisper.Client
	Cache   *transcache.Store
	Logger  *slog.Logger
}

// NewDeps wires the default tool clients from configuration. Cache may stay
// nil when the transcript cache is disabled.
func NewDeps(cfg *config.Config, cache *transcache.Store, logger *slog.Logger) *Deps {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deps{
		Config: cfg,
		FFmpeg: ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpeg)),
		Demucs: demucs.NewCLI(
			demucs.WithPython(cfg.Tools.Python),
			demucs.WithModel(cfg.Tools.DemucsModel),
		),
		Whisper: whisper.NewCLI(
			whisper.WithPython(cfg.Tools.Python),
			whisper.WithModel(cfg.Tools.WhisperModel),
			whisper.WithLanguage(cfg.Tools.WhisperLanguage),
		),
		Cache:  cache,
		Logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// probeDuration returns the input duration in seconds, or 0 when probing
// fails. Callers treat 0 as "unknown" and keep heuristic progress.
func (d *Deps) probeDuration(ctx context.Context, path string) float64 {
	return ffprobe.Duration(ctx, d.Config.Tools.FFprobe, path)
}

// requireOutput verifies an adapter actually produced its artifact.
func requireOutput(stage, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "output", "expected output file missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, stage, "output", "output file is empty", nil)
	}
	return nil
}

// zipFiles packages named files into a zip archive at dest. Entries map
// archive names to source paths.
func zipFiles(dest string, entries map[string]string) error {
	out, err := os.Create(dest) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	writer := zip.NewWriter(out)

	failure := func(err error) error {
		writer.Close()
		out.Close()
		os.Remove(dest)
		return err
	}

	for name, path := range entries {
		src, err := os.Open(path) //nolint:gosec
		if err != nil {
			return failure(fmt.Errorf("archive %s: %w", name, err))
		}
		entry, err := writer.Create(name)
		if err != nil {
			src.Close()
			return failure(fmt.Errorf("archive %s: %w", name, err))
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return failure(fmt.Errorf("archive %s: %w", name, err))
		}
		src.Close()
	}

	if err := writer.Close(); err != nil {
		return failure(fmt.Errorf("finalize archive: %w", err))
	}
	return out.Close()
}

// errMissingVocals marks a separation run that produced no vocals stem.
var errMissingVocals = errors.New("no vocals stem produced")
