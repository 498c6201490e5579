// Package align maps lyric lines onto timestamps recovered from a
// word-level transcript. The matching is heuristic fuzzy word-sequence
// scoring with a monotonic repair pass, not phoneme-accurate alignment.
package align

import (
	"sort"
	"strings"
)

// Scoring weights for one candidate alignment position. Exact word matches
// dominate, substring containment counts partially, a near-equal word length
// counts marginally, and positions with any matches at all earn a bonus
// proportional to the match count.
const (
	scoreExact     = 10
	scoreSubstring = 5
	scoreLength    = 1
	scoreMatchEach = 2

	lengthSlack = 2

	// windowFactor bounds the lookahead per line to 3x its word count.
	windowFactor = 3

	// blankLineStep spaces an interior blank line after its predecessor.
	blankLineStep = 1.0
	// extrapolateStep spaces lines once the transcript is exhausted.
	extrapolateStep = 2.0
	// monotonicStep is the repair increment for non-increasing timestamps.
	monotonicStep = 0.5

	// sparseMinGap is the floor when spreading lines over a track without
	// any word anchors.
	sparseMinGap = 0.35
)

// Token is one transcribed word with its start time in seconds.
type Token struct {
	Time float64
	Text string
}

// Pair is one aligned output line. Pairs preserve the input line order and
// carry strictly non-decreasing times.
type Pair struct {
	Time float64
	Text string
}

// Align produces one timestamp per lyric line. trackEnd is the probed track
// duration in seconds, used for blank trailing lines and for spreading lines
// when the transcript carries no usable tokens. Tokens are sorted by time
// before matching; the transcription collaborator usually delivers them
// ordered, but ordering is load-bearing here so it is not assumed.
func Align(tokens []Token, lines []string, trackEnd float64) []Pair {
	if len(lines) == 0 {
		return nil
	}
	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var pairs []Pair
	if len(sorted) == 0 {
		pairs = spreadLines(lines, trackEnd)
	} else {
		pairs = matchLines(sorted, lines, trackEnd)
	}

	for i := 1; i < len(pairs); i++ {
		if pairs[i].Time <= pairs[i-1].Time {
			pairs[i].Time = pairs[i-1].Time + monotonicStep
		}
	}
	return pairs
}

func matchLines(tokens []Token, lines []string, trackEnd float64) []Pair {
	pairs := make([]Pair, 0, len(lines))
	cursor := 0

	for i, line := range lines {
		words := Tokenize(line)

		if len(words) == 0 {
			switch {
			case i == 0:
				pairs = append(pairs, Pair{Time: 0, Text: line})
			case i == len(lines)-1:
				pairs = append(pairs, Pair{Time: trackEnd, Text: line})
			default:
				pairs = append(pairs, Pair{Time: pairs[len(pairs)-1].Time + blankLineStep, Text: line})
			}
			continue
		}

		matchIdx := bestMatch(words, tokens, cursor)
		if matchIdx < cursor && cursor < len(tokens) {
			matchIdx = cursor
		}

		if matchIdx < len(tokens) {
			pairs = append(pairs, Pair{Time: tokens[matchIdx].Time, Text: line})
			advance := len(words) / 2
			if advance < 1 {
				advance = 1
			}
			if advance > len(words) {
				advance = len(words)
			}
			cursor = matchIdx + advance
			if cursor > len(tokens)-1 {
				cursor = len(tokens) - 1
			}
			continue
		}

		if len(pairs) > 0 {
			pairs = append(pairs, Pair{Time: pairs[len(pairs)-1].Time + extrapolateStep, Text: line})
		} else {
			pairs = append(pairs, Pair{Time: 0, Text: line})
		}
	}
	return pairs
}

// bestMatch scans a bounded window starting at cursor for the position whose
// word sequence best matches the line. Ties resolve to the earliest position:
// only a strictly better score moves the candidate.
func bestMatch(words []string, tokens []Token, cursor int) int {
	if len(words) == 0 || len(tokens) == 0 {
		return cursor
	}

	bestScore := -1
	bestIdx := cursor

	end := cursor + len(words)*windowFactor
	if end > len(tokens) {
		end = len(tokens)
	}
	for i := cursor; i < end; i++ {
		score := 0
		matches := 0
		for j, word := range words {
			if i+j >= len(tokens) {
				break
			}
			token := Normalize(tokens[i+j].Text)
			switch {
			case word == token:
				score += scoreExact
				matches++
			case token != "" && (contains(token, word) || contains(word, token)):
				score += scoreSubstring
				matches++
			case absInt(len(word)-len(token)) <= lengthSlack:
				score += scoreLength
			}
		}
		if matches > 0 {
			score += matches * scoreMatchEach
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

// spreadLines distributes lines evenly across a track when transcription
// produced no word anchors at all.
func spreadLines(lines []string, trackEnd float64) []Pair {
	gap := sparseMinGap
	if trackEnd > 0 && len(lines) > 0 {
		if spread := trackEnd / float64(len(lines)); spread > gap {
			gap = spread
		}
	}
	pairs := make([]Pair, 0, len(lines))
	for i, line := range lines {
		pairs = append(pairs, Pair{Time: float64(i) * gap, Text: line})
	}
	return pairs
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
