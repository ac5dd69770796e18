package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// FileSource serves questions loaded once from a JSON file. Theme criteria
// filter by case-insensitive substring; results are shuffled before the
// count limit is applied. Pool criteria are not resolvable from a flat file
// and fall back to the full set.
type FileSource struct {
	questions []Question
}

func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions file: %w", err)
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parsing questions file: %w", err)
	}
	return &FileSource{questions: qs}, nil
}

// Themes lists the distinct theme labels present in the file, in first-seen
// order.
func (s *FileSource) Themes() []string {
	var themes []string
	seen := make(map[string]bool)
	for _, q := range s.questions {
		if q.Theme != "" && !seen[q.Theme] {
			seen[q.Theme] = true
			themes = append(themes, q.Theme)
		}
	}
	return themes
}

func (s *FileSource) Fetch(_ context.Context, c Criteria, count int) []Question {
	matched := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if matchesThemes(q.Theme, c.Themes) {
			matched = append(matched, q)
		}
	}
	if len(matched) == 0 {
		return Fallback(count)
	}

	rand.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	if count < len(matched) {
		matched = matched[:count]
	}
	return matched
}

func matchesThemes(theme string, themes []string) bool {
	if len(themes) == 0 {
		return true
	}
	for _, t := range themes {
		if strings.Contains(strings.ToLower(theme), strings.ToLower(t)) {
			return true
		}
	}
	return false
}
