package certification

// Difficulty is the adaptive scenario difficulty.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// DifficultyFromQuizScores picks a difficulty from prior quiz percentages:
// an average of 85 or more is advanced, 60 or more intermediate, anything
// lower beginner. No prior scores means intermediate.
func DifficultyFromQuizScores(scores []float64) Difficulty {
	if len(scores) == 0 {
		return Intermediate
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	switch {
	case avg >= 85:
		return Advanced
	case avg >= 60:
		return Intermediate
	default:
		return Beginner
	}
}
