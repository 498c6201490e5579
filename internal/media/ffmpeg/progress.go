package ffmpeg

import (
	"regexp"
	"strconv"
)

// timePattern matches the elapsed-time marker ffmpeg prints on its stats
// line, e.g. "time=00:01:23.45".
var timePattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// ParseElapsed extracts the elapsed seconds from one line of ffmpeg
// diagnostic output. The second return value is false when the line carries
// no time marker.
func ParseElapsed(line string) (float64, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)
	seconds, _ := strconv.ParseFloat(match[3], 64)
	return hours*3600 + minutes*60 + seconds, true
}

// ProgressParser converts ffmpeg stats lines into completion fractions
// against a previously probed total duration.
type ProgressParser struct {
	duration float64
}

// NewProgressParser builds a parser for the given total duration in seconds.
// A duration of zero or less disables fraction reporting: Fraction then never
// returns a value, so callers keep whatever heuristic progress they last set.
func NewProgressParser(durationSeconds float64) *ProgressParser {
	return &ProgressParser{duration: durationSeconds}
}

// Fraction parses one diagnostic line and reports progress in [0,1]. The
// second return value is false when the line has no time marker or the total
// duration is unknown.
func (p *ProgressParser) Fraction(line string) (float64, bool) {
	if p == nil || p.duration <= 0 {
		return 0, false
	}
	elapsed, ok := ParseElapsed(line)
	if !ok {
		return 0, false
	}
	fraction := elapsed / p.duration
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fraction, true
}
