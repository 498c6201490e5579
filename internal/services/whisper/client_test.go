package whisper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/services"
	"mixdown/internal/services/whisper"
)

type stubRunner struct {
	result services.CommandResult
	err    error

	name string
	args []string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) (services.CommandResult, error) {
	s.name = name
	s.args = args
	return s.result, s.err
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocals.wav")
	if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestTranscribeParsesWordTimestamps(t *testing.T) {
	runner := &stubRunner{result: services.CommandResult{
		Stdout: `{"duration": 182.4, "words": [{"start": 0.5, "word": " Hello"}, {"start": 1.2, "word": "world "}]}`,
	}}
	client := whisper.NewCLI(whisper.WithRunner(runner), whisper.WithModel("small"), whisper.WithLanguage("ko"))

	result, err := client.Transcribe(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Duration != 182.4 {
		t.Fatalf("unexpected duration %v", result.Duration)
	}
	if len(result.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(result.Tokens))
	}
	if result.Tokens[0].Text != "Hello" || result.Tokens[0].Time != 0.5 {
		t.Fatalf("unexpected first token %+v", result.Tokens[0])
	}

	if runner.name != "python" {
		t.Fatalf("unexpected interpreter %q", runner.name)
	}
	found := false
	for i, arg := range runner.args {
		if arg == "--language" && i+1 < len(runner.args) && runner.args[i+1] == "ko" {
			found = true
		}
	}
	if !found {
		t.Fatalf("language flag missing from args %v", runner.args)
	}
}

func TestTranscribeSurfacesHelperError(t *testing.T) {
	runner := &stubRunner{result: services.CommandResult{
		Stdout: `{"error": "faster-whisper is not installed"}`,
	}}
	client := whisper.NewCLI(whisper.WithRunner(runner))

	_, err := client.Transcribe(context.Background(), writeInput(t))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranscribeWrapsProcessFailure(t *testing.T) {
	runner := &stubRunner{
		result: services.CommandResult{Stderr: "Traceback: boom", ExitCode: 1},
		err:    errors.New("exit status 1"),
	}
	client := whisper.NewCLI(whisper.WithRunner(runner))

	_, err := client.Transcribe(context.Background(), writeInput(t))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribeRejectsEmptyPath(t *testing.T) {
	client := whisper.NewCLI(whisper.WithRunner(&stubRunner{}))
	if _, err := client.Transcribe(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranscribeSkipsBlankWords(t *testing.T) {
	runner := &stubRunner{result: services.CommandResult{
		Stdout: `{"duration": 10, "words": [{"start": 0.5, "word": "  "}, {"start": 1.0, "word": "kept"}]}`,
	}}
	client := whisper.NewCLI(whisper.WithRunner(runner))

	result, err := client.Transcribe(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(result.Tokens) != 1 || result.Tokens[0].Text != "kept" {
		t.Fatalf("unexpected tokens %+v", result.Tokens)
	}
}
