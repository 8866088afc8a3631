package ubigeo

import "strings"

// Match tiers returned by Score.
const (
	ScoreExact           = 100
	ScorePrefix          = 90
	ScoreContains        = 70
	ScoreReverseContains = 50
	ScoreNone            = 0
)

// Score rates how well query matches candidate after normalizing both:
// exact, prefix, substring, then candidate-inside-query. Zero means no
// match and callers must drop the candidate.
func Score(query, candidate string) int {
	return scoreNormalized(Normalize(query), Normalize(candidate))
}

func scoreNormalized(q, c string) int {
	if q == "" || c == "" {
		return ScoreNone
	}
	switch {
	case q == c:
		return ScoreExact
	case strings.HasPrefix(c, q):
		return ScorePrefix
	case strings.Contains(c, q):
		return ScoreContains
	case strings.Contains(q, c):
		return ScoreReverseContains
	}
	return ScoreNone
}
