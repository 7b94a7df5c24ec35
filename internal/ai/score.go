package ai

import (
	"regexp"
	"strconv"
)

var (
	scoreLabel    = regexp.MustCompile(`(?i)match\s*score\s*:\s*(\d{1,3})`)
	scoreFraction = regexp.MustCompile(`(\d{1,3})\s*/\s*100`)
)

// ParseMatchScore pulls the 0-100 match score out of a generated report. The
// "Match score: N" line wins over a bare "N/100". Values are clamped to the
// range; nil means the report carries no score.
func ParseMatchScore(report string) *int {
	if report == "" {
		return nil
	}

	m := scoreLabel.FindStringSubmatch(report)
	if m == nil {
		m = scoreFraction.FindStringSubmatch(report)
	}
	if m == nil {
		return nil
	}

	score, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	score = max(0, min(100, score))

	return &score
}
