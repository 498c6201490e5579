package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mixdown/internal/services"
)

func TestWrapTagsSentinel(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "render", "parse params", "width out of range", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "render: parse params: width out of range") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "stems", "demucs", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool sentinel, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestTailBoundsLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	tail := services.Tail(sb.String(), 10, 0)
	lines := strings.Split(tail, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	if lines[0] != "line 90" || lines[9] != "line 99" {
		t.Fatalf("unexpected tail window: %q .. %q", lines[0], lines[9])
	}
}

func TestTailBoundsBytes(t *testing.T) {
	text := strings.Repeat("a", 5000)
	tail := services.Tail(text, 0, 2000)
	if len(tail) > 2000 {
		t.Fatalf("tail exceeds byte cap: %d", len(tail))
	}
}

func TestDiagnosticTailEmpty(t *testing.T) {
	if got := services.DiagnosticTail(""); got != "" {
		t.Fatalf("expected empty tail, got %q", got)
	}
}
