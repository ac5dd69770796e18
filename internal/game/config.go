package game

import (
	"time"

	"polyculture/internal/answers"
)

// Config carries the session tunables. Match decides answer correctness and
// defaults to the normalize-and-edit-distance comparator.
type Config struct {
	QuestionTime  time.Duration // time limit per question
	AdvanceDelay  time.Duration // pause between round result and next question
	DefaultRounds int           // rounds when the host does not pick a count
	Match         func(userAnswer, canonical string) bool
}

func DefaultConfig() Config {
	return Config{
		QuestionTime:  20 * time.Second,
		AdvanceDelay:  5 * time.Second,
		DefaultRounds: 10,
		Match:         answers.Match,
	}
}
