// Package validation scores the final consensus against a ground-truth
// answer key, producing overall and per-category accuracy plus an
// auditable list of wrong decisions.
package validation

import (
	"log/slog"
	"sort"

	"github.com/xerk-dot/medboard/consensus"
)

// CategoryStats is the per-category slice of the accuracy breakdown.
type CategoryStats struct {
	Total          int `json:"total"`
	ConsensusCount int `json:"consensus_count"`
	CorrectCount   int `json:"correct_count"`
}

// Mismatch records one achieved-but-wrong consensus with its full vote
// breakdown for audit.
type Mismatch struct {
	QuestionID      int            `json:"question_id"`
	ConsensusChoice string         `json:"consensus_choice"`
	ConsensusShare  float64        `json:"consensus_share"`
	CorrectChoice   string         `json:"correct_choice"`
	VoteBreakdown   map[string]int `json:"vote_breakdown"`
}

// Report is the terminal validation artifact.
//
// ConsensusAccuracy divides correct decisions by achieved decisions;
// OverallAccuracy divides by all questions, so unresolved questions
// count as failures. Questions missing from the answer key appear in
// Unscored and contribute to no accuracy numerator.
type Report struct {
	TotalQuestions    int                      `json:"total_questions"`
	ConsensusAchieved int                      `json:"consensus_achieved_count"`
	ConsensusCorrect  int                      `json:"consensus_correct_count"`
	ConsensusAccuracy float64                  `json:"consensus_accuracy"`
	OverallAccuracy   float64                  `json:"overall_accuracy"`
	ByCategory        map[string]CategoryStats `json:"accuracy_by_category"`
	Mismatches        []Mismatch               `json:"mismatches"`         // ascending by question ID
	Unscored          []int                    `json:"unscored_questions"` // present in consensus, absent from key
}

// Validate compares the final per-question consensus with the answer
// key. categoryOf may be nil or partial; questions without a category
// fall into "other". It never fails: gaps are reported, not raised.
func Validate(final map[int]consensus.QuestionConsensus, key map[int]string, categoryOf map[int]string) *Report {
	r := &Report{
		TotalQuestions: len(final),
		ByCategory:     make(map[string]CategoryStats),
	}

	ids := make([]int, 0, len(final))
	for q := range final {
		ids = append(ids, q)
	}
	sort.Ints(ids)

	for _, q := range ids {
		qc := final[q]

		correct, scored := key[q]
		if !scored {
			r.Unscored = append(r.Unscored, q)
			slog.Warn("validation: question missing from answer key", "question", q)
		}

		cat := categoryOf[q]
		if cat == "" {
			cat = "other"
		}
		stats := r.ByCategory[cat]
		stats.Total++

		if qc.Achieved {
			r.ConsensusAchieved++
			stats.ConsensusCount++
			if scored {
				if qc.WinningChoice == correct {
					r.ConsensusCorrect++
					stats.CorrectCount++
				} else {
					r.Mismatches = append(r.Mismatches, Mismatch{
						QuestionID:      q,
						ConsensusChoice: qc.WinningChoice,
						ConsensusShare:  qc.WinningShare,
						CorrectChoice:   correct,
						VoteBreakdown:   qc.ChoiceCounts,
					})
				}
			}
		}
		r.ByCategory[cat] = stats
	}

	if r.ConsensusAchieved > 0 {
		r.ConsensusAccuracy = float64(r.ConsensusCorrect) / float64(r.ConsensusAchieved)
	}
	if r.TotalQuestions > 0 {
		r.OverallAccuracy = float64(r.ConsensusCorrect) / float64(r.TotalQuestions)
	}
	return r
}
