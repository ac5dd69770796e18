// Package questions supplies the ordered question sequences a game session
// plays through. Sources never return errors: any failure inside the
// boundary degrades to a fallback or empty sequence.
package questions

import "context"

// Question is one playable trivia question. Type and Media are carried
// through to clients untouched.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"question"`
	Answer string `json:"answer"`
	Theme  string `json:"theme"`
	Type   string `json:"type,omitempty"`
	Media  string `json:"media,omitempty"`
}

// Criteria selects questions either from a pool (PoolID > 0) or from a theme
// list. An empty criteria means "any theme".
type Criteria struct {
	PoolID int
	Themes []string
}

// Source produces up to count questions for the criteria. Implementations
// absorb their own failures and return a shorter (possibly empty) slice
// instead of an error.
type Source interface {
	Fetch(ctx context.Context, c Criteria, count int) []Question
}

// Fallback returns the built-in general-knowledge set used when a real
// source has nothing to offer. At most count questions are returned.
func Fallback(count int) []Question {
	qs := []Question{
		{ID: "1", Prompt: "What is the capital of France?", Answer: "Paris", Theme: "Geography"},
		{ID: "2", Prompt: "Who painted the Mona Lisa?", Answer: "Leonardo da Vinci", Theme: "Art"},
		{ID: "3", Prompt: "What is the chemical symbol for gold?", Answer: "Au", Theme: "Science"},
		{ID: "4", Prompt: "Which planet is known as the Red Planet?", Answer: "Mars", Theme: "Astronomy"},
		{ID: "5", Prompt: "What is the tallest mountain in the world?", Answer: "Mount Everest", Theme: "Geography"},
		{ID: "6", Prompt: "Who wrote 'Romeo and Juliet'?", Answer: "William Shakespeare", Theme: "Literature"},
		{ID: "7", Prompt: "What is the largest organ in the human body?", Answer: "Skin", Theme: "Biology"},
		{ID: "8", Prompt: "In which year did World War II end?", Answer: "1945", Theme: "History"},
		{ID: "9", Prompt: "What is the capital of Japan?", Answer: "Tokyo", Theme: "Geography"},
		{ID: "10", Prompt: "Who discovered penicillin?", Answer: "Alexander Fleming", Theme: "Science"},
	}
	if count < len(qs) {
		return qs[:count]
	}
	return qs
}

// StaticSource serves a fixed slice, ignoring criteria. Used as the
// last-resort source and in tests.
type StaticSource []Question

func (s StaticSource) Fetch(_ context.Context, _ Criteria, count int) []Question {
	if count < len(s) {
		return append([]Question(nil), s[:count]...)
	}
	return append([]Question(nil), s...)
}
