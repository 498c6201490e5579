package config

const (
	defaultWorkDir             = "~/.local/share/mixdown/work"
	defaultLogDir              = "~/.local/share/mixdown/logs"
	defaultAPIBind             = "127.0.0.1:8422"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultPythonBinary        = "python3"
	defaultWhisperModel        = "small"
	defaultWhisperLanguage     = "auto"
	defaultDemucsModel         = "htdemucs"
	defaultRenderTimeout       = 1800
	defaultPipelineTimeout     = 7200
	defaultUploadMaxMiB        = 512
	defaultLogTail             = 100
	defaultSweepAfter          = 3600
	defaultCachePath           = "~/.cache/mixdown/transcripts.db"
	defaultCacheMaxAgeDays     = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Tools: Tools{
			FFmpeg:          defaultFFmpegBinary,
			FFprobe:         defaultFFprobeBinary,
			Python:          defaultPythonBinary,
			WhisperModel:    defaultWhisperModel,
			WhisperLanguage: defaultWhisperLanguage,
			DemucsModel:     defaultDemucsModel,
		},
		Limits: Limits{
			RenderTimeout:   defaultRenderTimeout,
			PipelineTimeout: defaultPipelineTimeout,
			UploadMaxMiB:    defaultUploadMaxMiB,
			LogTail:         defaultLogTail,
			SweepAfter:      defaultSweepAfter,
		},
		TranscriptCache: TranscriptCache{
			Enabled:    true,
			Path:       defaultCachePath,
			MaxAgeDays: defaultCacheMaxAgeDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
