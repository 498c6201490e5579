package ffmpeg

import "fmt"

// WaveformOptions shape the rendered waveform video.
type WaveformOptions struct {
	Width      int
	Height     int
	FPS        int
	Color      string
	Background string
}

// DefaultWaveformOptions returns the canvas defaults used by the render API.
func DefaultWaveformOptions() WaveformOptions {
	return WaveformOptions{
		Width:      1280,
		Height:     720,
		FPS:        30,
		Color:      "0x5ac8fa",
		Background: "0x0b1020",
	}
}

// WaveformArgs builds the ffmpeg invocation that renders an audio waveform
// onto a solid background as an H.264 video with the source audio muxed in.
func WaveformArgs(input, output string, opts WaveformOptions) []string {
	filter := fmt.Sprintf(
		"color=c=%s:s=%dx%d:r=%d[bg];[0:a]aformat=channel_layouts=mono,showwaves=s=%dx%d:mode=line:colors=%s[sw];[bg][sw]overlay=format=rgb",
		opts.Background, opts.Width, opts.Height, opts.FPS,
		opts.Width, opts.Height, opts.Color,
	)
	return []string{
		"-y",
		"-i", input,
		"-filter_complex", filter,
		"-map", "0:a",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		output,
	}
}

// ExtractMonoArgs builds the invocation that downmixes a source to the mono
// 16 kHz PCM WAV the transcription tooling expects.
func ExtractMonoArgs(input, output string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-i", input,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		output,
	}
}

// VocalBoostArgs builds the invocation that pre-filters separated vocals for
// better transcription recall: bandpass, gentle compression, loudness
// normalization, downmixed to mono 16 kHz.
func VocalBoostArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-af", "highpass=f=100, lowpass=f=8000, acompressor=threshold=-20dB:ratio=3:attack=5:release=50, loudnorm=I=-16:TP=-1.5:LRA=11",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		output,
	}
}
