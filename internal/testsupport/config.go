package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.TranscriptCache.Path = filepath.Join(base, "cache", "transcripts.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWhisperLanguage pins the transcription language on the test config.
func WithWhisperLanguage(language string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.WhisperLanguage = language
	}
}

// WithTranscriptCache toggles the transcript cache on the test config.
func WithTranscriptCache(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TranscriptCache.Enabled = enabled
	}
}

// WithStubbedBinaries writes no-op stub executables for the provided names,
// prepends them to PATH, and points the tool configuration at them. If names
// is empty, the default external binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "python"}
		}
		for _, name := range names {
			b.installStub(name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubbedBinary writes a stub executable with the given shell script
// body and points the matching tool configuration at it.
func WithStubbedBinary(name, script string) ConfigOption {
	return func(b *configBuilder) {
		b.installStub(name, script)
	}
}

func (b *configBuilder) installStub(name, script string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}

	switch name {
	case "ffmpeg":
		b.cfg.Tools.FFmpeg = target
	case "ffprobe":
		b.cfg.Tools.FFprobe = target
	case "python":
		b.cfg.Tools.Python = target
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
