package agent

import (
	"regexp"
	"strconv"
)

// DefaultScore is returned when no heuristic matches the analysis text.
const DefaultScore = 5.0

var (
	// "8.5/10" or "8 / 10"
	slashTenPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`)
	// "Score: 7.5", "Overall: 8", "Effectiveness: 0.85"
	labeledPattern = regexp.MustCompile(`(?i)(?:score|overall|effectiveness):\s*(\d+(?:\.\d+)?)`)
	// Any standalone number in [1, 10].
	standalonePattern = regexp.MustCompile(`\b([1-9](?:\.\d+)?|10(?:\.0+)?)\b`)
)

// ExtractScore turns free-form effectiveness analysis into a numeric
// score in [0, 10]. It is pure and total: unmatched input degrades to
// DefaultScore rather than failing.
//
// Heuristics, first match wins:
//
//  1. A structured score accompanying the text is trusted and returned
//     directly, without clamping.
//  2. An "N/10" pattern returns N.
//  3. A labeled "score|overall|effectiveness: N" returns N, scaling
//     fractions (N <= 1.0) by 10 and clamping the result to 10.0.
//  4. The first standalone number in [1, 10] is returned.
//  5. Otherwise DefaultScore.
func ExtractScore(analysis string, structured *float64) float64 {
	if structured != nil {
		return *structured
	}

	if m := slashTenPattern.FindStringSubmatch(analysis); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}

	if m := labeledPattern.FindStringSubmatch(analysis); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if v <= 1.0 {
				v *= 10
			}
			if v > 10.0 {
				v = 10.0
			}
			return v
		}
	}

	for _, m := range standalonePattern.FindAllStringSubmatch(analysis, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 1.0 && v <= 10.0 {
			return v
		}
	}

	return DefaultScore
}
