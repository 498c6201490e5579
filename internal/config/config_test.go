package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mixdown/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "mixdown", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8422" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.FFprobe != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.Tools.WhisperLanguage != "auto" {
		t.Fatalf("unexpected whisper language: %q", cfg.Tools.WhisperLanguage)
	}
	if !cfg.TranscriptCache.Enabled {
		t.Fatal("expected transcript cache enabled by default")
	}
	if cfg.Limits.LogTail != 100 {
		t.Fatalf("unexpected log tail: %d", cfg.Limits.LogTail)
	}
	if cfg.UploadMaxBytes() != 512<<20 {
		t.Fatalf("unexpected upload cap: %d", cfg.UploadMaxBytes())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
work_dir = "` + filepath.Join(dir, "scratch") + `"
api_bind = "127.0.0.1:9000"

[tools]
whisper_language = "KO"

[limits]
render_timeout = -5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.WorkDir != filepath.Join(dir, "scratch") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Tools.WhisperLanguage != "ko" {
		t.Fatalf("expected language lowercased, got %q", cfg.Tools.WhisperLanguage)
	}
	if cfg.Limits.RenderTimeout != 1800 {
		t.Fatalf("expected invalid timeout replaced with default, got %d", cfg.Limits.RenderTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad bind", "[paths]\napi_bind = \"nonsense\"\n", "paths.api_bind"},
		{"bad language", "[tools]\nwhisper_language = \"fr\"\n", "whisper_language"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad level", "[logging]\nlevel = \"verbose\"\n", "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected sample format: %q", cfg.Logging.Format)
	}
	if cfg.Tools.DemucsModel != "htdemucs" {
		t.Fatalf("unexpected sample demucs model: %q", cfg.Tools.DemucsModel)
	}
}
