package ffmpeg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LoudnessTargets are the parameters of a two-pass loudnorm run.
type LoudnessTargets struct {
	IntegratedLUFS float64
	TruePeak       float64
	LoudnessRange  float64
}

// DefaultLoudnessTargets returns the streaming-friendly -14 LUFS targets.
func DefaultLoudnessTargets() LoudnessTargets {
	return LoudnessTargets{IntegratedLUFS: -14.0, TruePeak: -1.5, LoudnessRange: 11.0}
}

// Compression configures an optional acompressor stage ahead of the loudnorm
// apply pass.
type Compression struct {
	Enabled     bool
	ThresholdDB float64
	Ratio       float64
	AttackMS    int
	ReleaseMS   int
}

// Measurement is the pass-one loudnorm analysis result. ffmpeg reports the
// numbers as JSON strings, so the fields stay strings and are interpolated
// verbatim into the second-pass filter.
type Measurement struct {
	InputI            string `json:"input_i"`
	InputTP           string `json:"input_tp"`
	InputLRA          string `json:"input_lra"`
	InputThresh       string `json:"input_thresh"`
	OutputI           string `json:"output_i"`
	OutputTP          string `json:"output_tp"`
	OutputLRA         string `json:"output_lra"`
	OutputThresh      string `json:"output_thresh"`
	NormalizationType string `json:"normalization_type"`
	TargetOffset      string `json:"target_offset"`
}

// ExtractMeasurement pulls the loudnorm JSON block out of mixed ffmpeg
// output. ffmpeg prints the block on stderr among ordinary diagnostics, so
// the extraction scans for the outermost brace pair.
func ExtractMeasurement(text string) (Measurement, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return Measurement{}, errors.New("loudnorm: no JSON block in output")
	}
	var m Measurement
	if err := json.Unmarshal([]byte(text[start:end+1]), &m); err != nil {
		return Measurement{}, fmt.Errorf("loudnorm: parse analysis block: %w", err)
	}
	if strings.TrimSpace(m.InputI) == "" {
		return Measurement{}, errors.New("loudnorm: analysis block missing input_i")
	}
	return m, nil
}

// AnalyzeArgs builds the pass-one invocation. highPrecision selects the soxr
// resampler; callers retry without it when the local ffmpeg lacks soxr.
func AnalyzeArgs(input string, targets LoudnessTargets, highPrecision bool) []string {
	resample := "aresample=48000"
	if highPrecision {
		resample = "aresample=48000:resampler=soxr:precision=28"
	}
	filter := fmt.Sprintf(
		"%s,loudnorm=I=%g:TP=%g:LRA=%g:print_format=json",
		resample, targets.IntegratedLUFS, targets.TruePeak, targets.LoudnessRange,
	)
	return []string{
		"-hide_banner",
		"-nostats",
		"-i", input,
		"-filter:a", filter,
		"-f", "null",
		"-",
	}
}

// ApplyArgs builds the pass-two invocation that applies the measured values
// linearly and writes a 16-bit PCM WAV.
func ApplyArgs(input, output string, m Measurement, targets LoudnessTargets, comp Compression, highPrecision bool) []string {
	chain := make([]string, 0, 3)
	if highPrecision {
		chain = append(chain, "aresample=48000:resampler=soxr:precision=28")
	} else {
		chain = append(chain, "aresample=48000")
	}
	if comp.Enabled {
		chain = append(chain, fmt.Sprintf(
			"acompressor=threshold=%gdB:ratio=%g:attack=%d:release=%d",
			comp.ThresholdDB, comp.Ratio, comp.AttackMS, comp.ReleaseMS,
		))
	}
	chain = append(chain, secondPassFilter(m, targets))

	return []string{
		"-y",
		"-hide_banner",
		"-i", input,
		"-filter:a", strings.Join(chain, ","),
		"-c:a", "pcm_s16le",
		output,
	}
}

func secondPassFilter(m Measurement, targets LoudnessTargets) string {
	return fmt.Sprintf(
		"loudnorm=I=%g:TP=%g:LRA=%g:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true:print_format=summary",
		targets.IntegratedLUFS, targets.TruePeak, targets.LoudnessRange,
		m.InputI, m.InputTP, m.InputLRA, m.InputThresh, m.TargetOffset,
	)
}
