package align_test

import (
	"bytes"
	"strings"
	"testing"

	"mixdown/internal/align"
)

func TestAlignMatchesSimpleTranscript(t *testing.T) {
	tokens := []align.Token{
		{Time: 0.0, Text: "hello"},
		{Time: 1.2, Text: "world"},
		{Time: 3.0, Text: "again"},
	}
	pairs := align.Align(tokens, []string{"hello world", "again"}, 5.0)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Time != 0.0 {
		t.Fatalf("first line should anchor at 0.0, got %v", pairs[0].Time)
	}
	if pairs[1].Time < pairs[0].Time {
		t.Fatalf("timestamps regressed: %v then %v", pairs[0].Time, pairs[1].Time)
	}
	if pairs[0].Text != "hello world" || pairs[1].Text != "again" {
		t.Fatalf("line order not preserved: %+v", pairs)
	}
}

func TestAlignOutputMirrorsInputOrder(t *testing.T) {
	tokens := []align.Token{
		{Time: 0.5, Text: "one"},
		{Time: 1.5, Text: "two"},
		{Time: 2.5, Text: "three"},
	}
	lines := []string{"three", "one", "two"}
	pairs := align.Align(tokens, lines, 10.0)
	if len(pairs) != len(lines) {
		t.Fatalf("expected %d pairs, got %d", len(lines), len(pairs))
	}
	for i, pair := range pairs {
		if pair.Text != lines[i] {
			t.Fatalf("pair %d carries %q, want %q", i, pair.Text, lines[i])
		}
	}
}

func TestAlignMonotonicWithDisorderedTokens(t *testing.T) {
	tokens := []align.Token{
		{Time: 4.0, Text: "late"},
		{Time: 0.5, Text: "early"},
		{Time: 2.0, Text: "middle"},
	}
	lines := []string{"late", "early", "middle", "extra", "lines", "here"}
	pairs := align.Align(tokens, lines, 6.0)
	if len(pairs) != len(lines) {
		t.Fatalf("expected %d pairs, got %d", len(lines), len(pairs))
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Time <= pairs[i-1].Time {
			t.Fatalf("pair %d time %v not after %v", i, pairs[i].Time, pairs[i-1].Time)
		}
	}
}

func TestAlignBlankLineInterpolation(t *testing.T) {
	tokens := []align.Token{
		{Time: 1.0, Text: "verse"},
		{Time: 5.0, Text: "chorus"},
	}
	lines := []string{"...", "verse", "---", "chorus", "!!!"}
	pairs := align.Align(tokens, lines, 30.0)
	if pairs[0].Time != 0.0 {
		t.Fatalf("leading blank line should sit at 0.0, got %v", pairs[0].Time)
	}
	if pairs[4].Time != 30.0 {
		t.Fatalf("trailing blank line should sit at track end, got %v", pairs[4].Time)
	}
	if pairs[2].Time != pairs[1].Time+1.0 {
		t.Fatalf("interior blank line should follow predecessor by 1.0s, got %v after %v", pairs[2].Time, pairs[1].Time)
	}
}

func TestAlignExtrapolatesPastTranscript(t *testing.T) {
	tokens := []align.Token{{Time: 1.0, Text: "only"}}
	lines := []string{"only", "missing entirely", "also missing"}
	pairs := align.Align(tokens, lines, 60.0)
	if pairs[0].Time != 1.0 {
		t.Fatalf("matched line should anchor at 1.0, got %v", pairs[0].Time)
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Time <= pairs[i-1].Time {
			t.Fatalf("extrapolated times must increase: %+v", pairs)
		}
	}
}

func TestAlignSpreadsLinesWithoutTokens(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	pairs := align.Align(nil, lines, 40.0)
	if len(pairs) != 4 {
		t.Fatalf("expected 4 pairs, got %d", len(pairs))
	}
	if pairs[0].Time != 0.0 {
		t.Fatalf("spread should start at 0.0, got %v", pairs[0].Time)
	}
	if pairs[1].Time != 10.0 {
		t.Fatalf("expected 10s spacing over a 40s track, got %v", pairs[1].Time)
	}
}

func TestAlignEmptyLines(t *testing.T) {
	if pairs := align.Align([]align.Token{{Time: 1, Text: "x"}}, nil, 5); pairs != nil {
		t.Fatalf("expected nil for no lines, got %+v", pairs)
	}
}

func TestAlignPrefersExactMatchOverLength(t *testing.T) {
	tokens := []align.Token{
		{Time: 0.0, Text: "mumble"},
		{Time: 2.0, Text: "shine"},
		{Time: 3.0, Text: "bright"},
	}
	pairs := align.Align(tokens, []string{"shine bright"}, 10.0)
	if pairs[0].Time != 2.0 {
		t.Fatalf("expected exact match anchor at 2.0, got %v", pairs[0].Time)
	}
}

func TestNormalizeStripsPunctuationAndCase(t *testing.T) {
	cases := map[string]string{
		"Hello!":  "hello",
		"WORLD,":  "world",
		"don't":   "dont",
		"노래해!":    "노래해",
		"...":     "",
		"  mix  ": "mix",
	}
	for input, want := range cases {
		if got := align.Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	words := align.Tokenize("Hello, world! It's me...")
	want := []string{"hello", "world", "it", "s", "me"}
	if len(words) != len(want) {
		t.Fatalf("got %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("got %v, want %v", words, want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:      "00:00.00",
		83.45:  "01:23.44",
		600.5:  "10:00.50",
		-3:     "00:00.00",
		59.999: "00:59.99",
	}
	for seconds, want := range cases {
		if got := align.FormatTimestamp(seconds); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", seconds, got, want)
		}
	}
}

func TestWriteLRC(t *testing.T) {
	var buf bytes.Buffer
	pairs := []align.Pair{
		{Time: 0, Text: "first line"},
		{Time: 12.5, Text: "second line"},
	}
	if err := align.WriteLRC(&buf, pairs); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\xEF\xBB\xBF") {
		t.Fatal("expected UTF-8 BOM prefix")
	}
	if !strings.Contains(out, "[00:00.00]first line\n") {
		t.Fatalf("missing first line tag in %q", out)
	}
	if !strings.Contains(out, "[00:12.50]second line\n") {
		t.Fatalf("missing second line tag in %q", out)
	}
}
