package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", Channels: 2},
		},
		Format: Format{
			Duration: "123.45",
		},
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream to be detected")
	}
}

func TestDurationSecondsHandlesInvalidValues(t *testing.T) {
	cases := []struct {
		name     string
		duration string
	}{
		{"empty", ""},
		{"garbage", "bad"},
		{"negative", "-3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Result{Format: Format{Duration: tc.duration}}
			if got := result.DurationSeconds(); got != 0 {
				t.Fatalf("expected 0 for %q, got %v", tc.duration, got)
			}
		})
	}
}

func TestHasAudioFalseWithoutStreams(t *testing.T) {
	if (Result{}).HasAudio() {
		t.Fatal("expected no audio")
	}
}
