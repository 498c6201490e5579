package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLimits()
	if err := c.normalizeTranscriptCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if bind, ok := os.LookupEnv("MIXDOWN_API_BIND"); ok && strings.TrimSpace(bind) != "" {
		c.Paths.APIBind = strings.TrimSpace(bind)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeTools() {
	set := func(field *string, fallback string) {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = fallback
		}
	}
	set(&c.Tools.FFmpeg, defaultFFmpegBinary)
	set(&c.Tools.FFprobe, defaultFFprobeBinary)
	set(&c.Tools.Python, defaultPythonBinary)
	set(&c.Tools.WhisperModel, defaultWhisperModel)
	set(&c.Tools.DemucsModel, defaultDemucsModel)
	c.Tools.WhisperLanguage = strings.ToLower(strings.TrimSpace(c.Tools.WhisperLanguage))
	if c.Tools.WhisperLanguage == "" {
		c.Tools.WhisperLanguage = defaultWhisperLanguage
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.RenderTimeout <= 0 {
		c.Limits.RenderTimeout = defaultRenderTimeout
	}
	if c.Limits.PipelineTimeout <= 0 {
		c.Limits.PipelineTimeout = defaultPipelineTimeout
	}
	if c.Limits.UploadMaxMiB <= 0 {
		c.Limits.UploadMaxMiB = defaultUploadMaxMiB
	}
	if c.Limits.LogTail <= 0 {
		c.Limits.LogTail = defaultLogTail
	}
	if c.Limits.SweepAfter <= 0 {
		c.Limits.SweepAfter = defaultSweepAfter
	}
}

func (c *Config) normalizeTranscriptCache() error {
	if strings.TrimSpace(c.TranscriptCache.Path) == "" {
		c.TranscriptCache.Path = defaultCachePath
	}
	expanded, err := expandPath(c.TranscriptCache.Path)
	if err != nil {
		return fmt.Errorf("transcript_cache.path: %w", err)
	}
	c.TranscriptCache.Path = expanded
	if c.TranscriptCache.MaxAgeDays <= 0 {
		c.TranscriptCache.MaxAgeDays = defaultCacheMaxAgeDays
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
