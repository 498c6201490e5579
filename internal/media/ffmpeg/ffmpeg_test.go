package ffmpeg_test

import (
	"strings"
	"testing"

	"mixdown/internal/media/ffmpeg"
)

func TestParseElapsed(t *testing.T) {
	line := "frame= 1024 fps= 30 q=28.0 size=    2048KiB time=00:01:23.45 bitrate= 201.0kbits/s speed=1.02x"
	elapsed, ok := ffmpeg.ParseElapsed(line)
	if !ok {
		t.Fatal("expected a time marker")
	}
	if elapsed != 83.45 {
		t.Fatalf("unexpected elapsed: %v", elapsed)
	}
}

func TestParseElapsedIgnoresPlainLines(t *testing.T) {
	if _, ok := ffmpeg.ParseElapsed("Stream mapping:"); ok {
		t.Fatal("expected no time marker")
	}
}

func TestProgressParserFraction(t *testing.T) {
	parser := ffmpeg.NewProgressParser(200)
	fraction, ok := parser.Fraction("size= 1024KiB time=00:00:50.00 bitrate= 167kbits/s")
	if !ok {
		t.Fatal("expected a fraction")
	}
	if fraction != 0.25 {
		t.Fatalf("unexpected fraction: %v", fraction)
	}
}

func TestProgressParserClampsOvershoot(t *testing.T) {
	parser := ffmpeg.NewProgressParser(10)
	fraction, ok := parser.Fraction("time=00:00:12.00")
	if !ok {
		t.Fatal("expected a fraction")
	}
	if fraction != 1 {
		t.Fatalf("expected clamp to 1, got %v", fraction)
	}
}

func TestProgressParserDisabledWithoutDuration(t *testing.T) {
	parser := ffmpeg.NewProgressParser(0)
	if _, ok := parser.Fraction("time=00:00:05.00"); ok {
		t.Fatal("expected no fraction when duration is unknown")
	}
}

const sampleAnalysisOutput = `ffmpeg version 6.1 Copyright (c) 2000-2023 the FFmpeg developers
Input #0, wav, from 'mix.wav':
  Duration: 00:03:12.00, bitrate: 1536 kb/s
[Parsed_loudnorm_1 @ 0x55f]
{
	"input_i" : "-23.61",
	"input_tp" : "-6.53",
	"input_lra" : "9.20",
	"input_thresh" : "-34.13",
	"output_i" : "-14.47",
	"output_tp" : "-1.50",
	"output_lra" : "7.10",
	"output_thresh" : "-24.89",
	"normalization_type" : "dynamic",
	"target_offset" : "0.47"
}
`

func TestExtractMeasurement(t *testing.T) {
	m, err := ffmpeg.ExtractMeasurement(sampleAnalysisOutput)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if m.InputI != "-23.61" {
		t.Fatalf("unexpected input_i: %q", m.InputI)
	}
	if m.TargetOffset != "0.47" {
		t.Fatalf("unexpected target_offset: %q", m.TargetOffset)
	}
}

func TestExtractMeasurementRejectsPlainOutput(t *testing.T) {
	if _, err := ffmpeg.ExtractMeasurement("conversion failed"); err == nil {
		t.Fatal("expected an error for output without a JSON block")
	}
}

func TestExtractMeasurementRejectsForeignJSON(t *testing.T) {
	if _, err := ffmpeg.ExtractMeasurement(`{"status":"ok"}`); err == nil {
		t.Fatal("expected an error for JSON without loudnorm fields")
	}
}

func TestAnalyzeArgsResamplerVariants(t *testing.T) {
	targets := ffmpeg.DefaultLoudnessTargets()
	precise := strings.Join(ffmpeg.AnalyzeArgs("in.wav", targets, true), " ")
	if !strings.Contains(precise, "resampler=soxr") {
		t.Fatalf("expected soxr resampler in %q", precise)
	}
	fallback := strings.Join(ffmpeg.AnalyzeArgs("in.wav", targets, false), " ")
	if strings.Contains(fallback, "soxr") {
		t.Fatalf("expected no soxr in fallback args %q", fallback)
	}
	if !strings.Contains(fallback, "print_format=json") {
		t.Fatalf("expected JSON print format in %q", fallback)
	}
}

func TestApplyArgsCarryMeasuredValues(t *testing.T) {
	m := ffmpeg.Measurement{
		InputI:       "-23.61",
		InputTP:      "-6.53",
		InputLRA:     "9.20",
		InputThresh:  "-34.13",
		TargetOffset: "0.47",
	}
	args := strings.Join(ffmpeg.ApplyArgs("in.wav", "out.wav", m, ffmpeg.DefaultLoudnessTargets(), ffmpeg.Compression{}, true), " ")
	for _, want := range []string{
		"measured_I=-23.61",
		"measured_TP=-6.53",
		"measured_LRA=9.20",
		"measured_thresh=-34.13",
		"offset=0.47",
		"linear=true",
		"pcm_s16le",
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}
	if strings.Contains(args, "acompressor") {
		t.Fatalf("expected no compressor stage in %q", args)
	}
}

func TestApplyArgsIncludeCompressorWhenEnabled(t *testing.T) {
	comp := ffmpeg.Compression{Enabled: true, ThresholdDB: -20, Ratio: 3, AttackMS: 5, ReleaseMS: 50}
	args := strings.Join(ffmpeg.ApplyArgs("in.wav", "out.wav", ffmpeg.Measurement{InputI: "-20"}, ffmpeg.DefaultLoudnessTargets(), comp, false), " ")
	if !strings.Contains(args, "acompressor=threshold=-20dB:ratio=3:attack=5:release=50") {
		t.Fatalf("expected compressor stage in %q", args)
	}
}

func TestWaveformArgsShape(t *testing.T) {
	args := strings.Join(ffmpeg.WaveformArgs("song.mp3", "out.mp4", ffmpeg.DefaultWaveformOptions()), " ")
	for _, want := range []string{"showwaves", "libx264", "yuv420p", "-shortest", "s=1280x720"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}
}
