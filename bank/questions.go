// Package bank loads and builds question banks: multiple-choice
// questions with A-D choices, the ground-truth answer key, and the
// regex-based question-type classification.
package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Question is one multiple-choice exam question.
type Question struct {
	Number  int               `json:"question_number"`
	Text    string            `json:"question"`
	Choices map[string]string `json:"choices"` // choice letter -> text
	Type    string            `json:"question_type,omitempty"`
}

// KeyEntry is one answer-key row.
type KeyEntry struct {
	Number        int    `json:"question_number"`
	CorrectAnswer string `json:"correct_answer"`
}

// LoadQuestions reads a question bank JSON file and classifies any
// question that is missing a type.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing question bank %s: %w", path, err)
	}
	for i := range questions {
		if questions[i].Type == "" {
			questions[i].Type = Classify(questions[i].Text)
		}
	}
	return questions, nil
}

// SaveQuestions writes a question bank to a JSON file.
func SaveQuestions(path string, questions []Question) error {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAnswerKey reads an answer key JSON file into a question -> choice map.
func LoadAnswerKey(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading answer key: %w", err)
	}
	var entries []KeyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing answer key %s: %w", path, err)
	}
	key := make(map[int]string, len(entries))
	for _, e := range entries {
		key[e.Number] = e.CorrectAnswer
	}
	return key, nil
}

// Categories maps question numbers to their types, for stratified
// validation reporting.
func Categories(questions []Question) map[int]string {
	cats := make(map[int]string, len(questions))
	for _, q := range questions {
		t := q.Type
		if t == "" {
			t = TypeOther
		}
		cats[q.Number] = t
	}
	return cats
}

// Select deterministically picks up to n questions, spread evenly
// across the bank in question-number order. n <= 0 or n >= len returns
// the full bank sorted by number.
func Select(questions []Question, n int) []Question {
	sorted := append([]Question(nil), questions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	picked := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		// Even spacing keeps every selection replayable.
		idx := i * len(sorted) / n
		picked = append(picked, sorted[idx])
	}
	return picked
}
