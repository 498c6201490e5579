package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"

	"mixdown/internal/align"
	"mixdown/internal/jobs"
	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/services/whisper"
	"mixdown/internal/transcache"
)

const (
	alignmentArtifact  = "alignment.zip"
	extractionArtifact = "lyrics.zip"

	// lineGapSeconds starts a new reconstructed lyric line after this much
	// silence between transcribed words.
	lineGapSeconds = 1.5
	// lineMaxWords caps reconstructed line length.
	lineMaxWords = 12
)

// AlignLyrics returns the job body that times lyricsText against the audio
// at inputPath: 16 kHz mono preprocess, word-level transcription (cached by
// audio content when a cache is configured), fuzzy alignment, LRC output.
func (d *Deps) AlignLyrics(inputPath, lyricsText string) jobs.PipelineFunc {
	return func(ctx context.Context, job *jobs.JobContext) (string, error) {
		prepared := job.Workspace.Path("prepared.wav")

		job.Log("preprocessing audio")
		job.Progress(0.05)
		if _, err := d.FFmpeg.RunStreaming(ctx, ffmpeg.ExtractMonoArgs(inputPath, prepared), nil); err != nil {
			return "", err
		}
		if err := requireOutput("align", prepared); err != nil {
			return "", err
		}
		job.Progress(0.15)

		transcript, err := d.transcribeCached(ctx, job, prepared)
		if err != nil {
			return "", err
		}
		job.Progress(0.8)

		trackEnd := transcript.Duration
		if trackEnd <= 0 {
			trackEnd = d.probeDuration(ctx, inputPath)
		}

		lines := splitLyricLines(lyricsText)
		job.Log("aligning lyric lines")
		pairs := align.Align(transcript.Tokens, lines, trackEnd)

		lrcPath := job.Workspace.Path("aligned_lyrics.lrc")
		if err := align.WriteLRCFile(lrcPath, pairs); err != nil {
			return "", err
		}
		job.Progress(0.95)

		archive := job.Workspace.Path(alignmentArtifact)
		entries := map[string]string{
			"aligned_lyrics.lrc": lrcPath,
			"prepared.wav":       prepared,
		}
		if err := zipFiles(archive, entries); err != nil {
			return "", err
		}
		if err := requireOutput("align", archive); err != nil {
			return "", err
		}
		return archive, nil
	}
}

// ExtractLyrics returns the job body that recovers lyrics from audio with no
// user-supplied text: separate vocals, boost them for intelligibility,
// transcribe, and reconstruct timed lines.
func (d *Deps) ExtractLyrics(inputPath string) jobs.PipelineFunc {
	return func(ctx context.Context, job *jobs.JobContext) (string, error) {
		job.Log("separating vocals")
		job.Progress(0.05)
		stemsDir, err := job.Workspace.Mkdir("stems")
		if err != nil {
			return "", err
		}
		stems, err := d.Demucs.Separate(ctx, inputPath, stemsDir, job.Log)
		if err != nil {
			return "", err
		}
		vocals, ok := stems["vocals"]
		if !ok {
			return "", errMissingVocals
		}
		job.Progress(0.45)

		job.Log("boosting vocal clarity")
		clean := job.Workspace.Path("clean.wav")
		audioForASR := vocals
		if _, err := d.FFmpeg.RunStreaming(ctx, ffmpeg.VocalBoostArgs(vocals, clean), nil); err == nil {
			if statErr := requireOutput("extract", clean); statErr == nil {
				audioForASR = clean
			}
		} else {
			job.Log("vocal boost failed, transcribing raw vocals")
		}
		job.Progress(0.55)

		job.Log("transcribing vocals")
		transcript, err := d.Whisper.Transcribe(ctx, audioForASR)
		if err != nil {
			return "", err
		}
		// A near-empty result usually means separation destroyed the voice;
		// retry on the original mix.
		if transcriptTextLength(transcript.Tokens) < 10 {
			job.Log("sparse transcript, retrying on original mix")
			if retry, retryErr := d.Whisper.Transcribe(ctx, inputPath); retryErr == nil {
				transcript = retry
			}
		}
		job.Progress(0.9)

		lines := groupTokens(transcript.Tokens)
		lrcPath := job.Workspace.Path("lyrics.lrc")
		if err := align.WriteLRCFile(lrcPath, lines); err != nil {
			return "", err
		}
		txtPath := job.Workspace.Path("lyrics.txt")
		if err := os.WriteFile(txtPath, []byte(joinLines(lines)), 0o644); err != nil {
			return "", err
		}

		archive := job.Workspace.Path(extractionArtifact)
		entries := map[string]string{
			"lyrics.lrc": lrcPath,
			"lyrics.txt": txtPath,
		}
		if err := zipFiles(archive, entries); err != nil {
			return "", err
		}
		if err := requireOutput("extract", archive); err != nil {
			return "", err
		}
		return archive, nil
	}
}

// transcribeCached consults the transcript cache before paying for a
// speech-to-text pass, and stores fresh results back.
func (d *Deps) transcribeCached(ctx context.Context, job *jobs.JobContext, audioPath string) (whisper.Result, error) {
	model := d.Config.Tools.WhisperModel
	language := d.Config.Tools.WhisperLanguage

	var hash string
	if d.Cache != nil {
		var err error
		hash, err = transcache.HashFile(audioPath)
		if err == nil {
			if cached, lookupErr := d.Cache.Lookup(ctx, hash, model, language); lookupErr == nil {
				job.Log("transcript cache hit")
				return whisper.Result{Tokens: cached.Tokens, Duration: cached.TrackEnd}, nil
			} else if !errors.Is(lookupErr, transcache.ErrNotFound) {
				d.Logger.Warn("transcript cache lookup failed", logging.Error(lookupErr))
			}
		}
	}

	job.Log("transcribing audio")
	transcript, err := d.Whisper.Transcribe(ctx, audioPath)
	if err != nil {
		return whisper.Result{}, err
	}

	if d.Cache != nil && hash != "" {
		saveErr := d.Cache.Save(ctx, hash, model, language, transcache.Transcript{
			Tokens:   transcript.Tokens,
			TrackEnd: transcript.Duration,
		})
		if saveErr != nil {
			d.Logger.Warn("transcript cache save failed", logging.Error(saveErr))
		}
	}
	return transcript, nil
}

// splitLyricLines keeps the user's line order, dropping fully blank lines the
// same way a lyric sheet reader would.
func splitLyricLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// groupTokens reconstructs lyric lines from word anchors: a long silence or
// a full line starts a new one.
func groupTokens(tokens []align.Token) []align.Pair {
	var lines []align.Pair
	var words []string
	var lineStart, lastTime float64

	flush := func() {
		if len(words) == 0 {
			return
		}
		lines = append(lines, align.Pair{Time: lineStart, Text: strings.Join(words, " ")})
		words = nil
	}

	for _, token := range tokens {
		text := strings.TrimSpace(token.Text)
		if text == "" {
			continue
		}
		if len(words) > 0 && (token.Time-lastTime > lineGapSeconds || len(words) >= lineMaxWords) {
			flush()
		}
		if len(words) == 0 {
			lineStart = token.Time
		}
		words = append(words, text)
		lastTime = token.Time
	}
	flush()
	return lines
}

func joinLines(lines []align.Pair) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, "\n")
}

func transcriptTextLength(tokens []align.Token) int {
	total := 0
	for _, token := range tokens {
		total += len(strings.TrimSpace(token.Text))
	}
	return total
}
