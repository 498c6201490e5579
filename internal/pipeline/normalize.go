package pipeline

import (
	"context"

	"mixdown/internal/jobs"
	"mixdown/internal/media/ffmpeg"
)

const normalizedArtifact = "normalized.wav"

// MeasureLoudness runs the pass-one loudnorm analysis synchronously. The
// measure endpoint serves its result directly without creating a job.
func (d *Deps) MeasureLoudness(ctx context.Context, inputPath string, targets ffmpeg.LoudnessTargets) (ffmpeg.Measurement, error) {
	return d.FFmpeg.Analyze(ctx, inputPath, targets)
}

// Normalize returns the job body for a two-pass loudness normalization of
// inputPath: measure, then apply the measured values linearly.
func (d *Deps) Normalize(inputPath string, targets ffmpeg.LoudnessTargets, comp ffmpeg.Compression) jobs.PipelineFunc {
	return func(ctx context.Context, job *jobs.JobContext) (string, error) {
		output := job.Workspace.Path(normalizedArtifact)

		job.Log("measuring loudness")
		job.Progress(0.1)
		measurement, err := d.FFmpeg.Analyze(ctx, inputPath, targets)
		if err != nil {
			return "", err
		}
		job.Log("measured integrated loudness " + measurement.InputI + " LUFS")
		job.Progress(0.4)

		duration := d.probeDuration(ctx, inputPath)
		parser := ffmpeg.NewProgressParser(duration)

		job.Log("applying normalization")
		err = d.FFmpeg.Normalize(ctx, inputPath, output, measurement, targets, comp, func(line string) {
			if fraction, ok := parser.Fraction(line); ok {
				// The apply pass is the back 60% of the job.
				job.Progress(0.4 + fraction*0.6)
			}
		})
		if err != nil {
			return "", err
		}
		if err := requireOutput("normalize", output); err != nil {
			return "", err
		}
		return output, nil
	}
}

// NormalizeSync runs the full two-pass normalization on the caller's
// goroutine for the synchronous endpoint. It returns the output path.
func (d *Deps) NormalizeSync(ctx context.Context, inputPath, output string, targets ffmpeg.LoudnessTargets, comp ffmpeg.Compression) (string, error) {
	measurement, err := d.FFmpeg.Analyze(ctx, inputPath, targets)
	if err != nil {
		return "", err
	}
	if err := d.FFmpeg.Normalize(ctx, inputPath, output, measurement, targets, comp, nil); err != nil {
		return "", err
	}
	if err := requireOutput("normalize", output); err != nil {
		return "", err
	}
	return output, nil
}
