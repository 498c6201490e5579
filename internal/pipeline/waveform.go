package pipeline

import (
	"context"

	"mixdown/internal/jobs"
	"mixdown/internal/media/ffmpeg"
)

const waveformArtifact = "waveform.mp4"

// Waveform returns the job body that renders an audio waveform video for
// inputPath inside the job workspace.
func (d *Deps) Waveform(inputPath string, opts ffmpeg.WaveformOptions) jobs.PipelineFunc {
	return func(ctx context.Context, job *jobs.JobContext) (string, error) {
		output := job.Workspace.Path(waveformArtifact)

		duration := d.probeDuration(ctx, inputPath)
		parser := ffmpeg.NewProgressParser(duration)
		if duration <= 0 {
			job.Log("duration unknown, progress will be approximate")
			job.Progress(0.1)
		}

		args := ffmpeg.WaveformArgs(inputPath, output, opts)
		_, err := d.FFmpeg.RunStreaming(ctx, args, func(line string) {
			if fraction, ok := parser.Fraction(line); ok {
				job.Progress(fraction)
			}
		})
		if err != nil {
			return "", err
		}
		if err := requireOutput("waveform", output); err != nil {
			return "", err
		}
		return output, nil
	}
}
