package cli

import (
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/at-ishikawa/conceptdeck/internal/content"
)

// pickQuestions draws up to n distinct concepts from batch.
func pickQuestions(batch []content.Concept, n int, rnd *rand.Rand) []content.Concept {
	questions := slices.Clone(batch)
	rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if n > 0 && n < len(questions) {
		questions = questions[:n]
	}
	return questions
}

// gradeAnswer compares answers case-insensitively, ignoring surrounding and repeated spaces.
func gradeAnswer(expected, answer string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	answer = normalize(answer)
	return answer != "" && answer == normalize(expected)
}

// ValidationOutcome scores a self-check quiz on a 0 to 10 scale.
// It passes when the share of correct answers reaches passRatio.
func ValidationOutcome(correct, total int, passRatio float64) (bool, float64) {
	if total == 0 {
		return false, 0
	}
	ratio := float64(correct) / float64(total)
	return ratio >= passRatio, math.Round(ratio*100) / 10
}
