// Package vote holds the immutable vote records the consensus engine
// consumes. Records are produced upstream by the rater panel, one per
// (rater, question, round); this package only validates them at the
// boundary and serves stable, pre-filtered views for tallying.
package vote

import (
	"log/slog"
	"sort"
)

// DefaultChoices is the standard multiple-choice answer set.
var DefaultChoices = []string{"A", "B", "C", "D"}

// Record is a single rater's vote on one question in one round.
// Records are immutable once written. Succeeded=false records are kept
// for audit but never counted in tallies.
type Record struct {
	RaterID    string `json:"rater_id"`
	QuestionID int    `json:"question_id"`
	Round      int    `json:"round"`
	Choice     string `json:"choice"`
	Rationale  string `json:"rationale,omitempty"`
	Succeeded  bool   `json:"succeeded"`
}

type questionRound struct {
	question int
	round    int
}

// Set is an immutable collection of vote records with stable iteration
// order. Malformed records (choice outside the valid choice set) are
// excluded from tallies at construction, logged, and retained for audit.
type Set struct {
	choices []string
	all     []Record
	valid   map[questionRound][]Record
	maxRnd  int
}

// NewSet builds a Set from records, validating each against choiceSet.
// A nil choiceSet means DefaultChoices. Duplicate (rater, question,
// round) records keep the first occurrence; later ones are dropped with
// a warning since the upstream writer guarantees at most one terminal
// record per slot.
func NewSet(choiceSet []string, records []Record) *Set {
	if len(choiceSet) == 0 {
		choiceSet = DefaultChoices
	}
	valid := make(map[string]bool, len(choiceSet))
	for _, c := range choiceSet {
		valid[c] = true
	}

	s := &Set{
		choices: append([]string(nil), choiceSet...),
		valid:   make(map[questionRound][]Record),
	}
	type slot struct {
		rater    string
		question int
		round    int
	}
	taken := make(map[slot]bool, len(records))

	for _, r := range records {
		sl := slot{r.RaterID, r.QuestionID, r.Round}
		if taken[sl] {
			slog.Warn("vote: duplicate record dropped",
				"rater", r.RaterID, "question", r.QuestionID, "round", r.Round)
			continue
		}
		taken[sl] = true
		s.all = append(s.all, r)
		if r.Round > s.maxRnd {
			s.maxRnd = r.Round
		}

		if !r.Succeeded {
			continue
		}
		if !valid[r.Choice] {
			slog.Warn("vote: malformed record excluded from tally",
				"rater", r.RaterID, "question", r.QuestionID,
				"round", r.Round, "choice", r.Choice)
			continue
		}
		k := questionRound{r.QuestionID, r.Round}
		s.valid[k] = append(s.valid[k], r)
	}
	return s
}

// Choices returns the valid choice set.
func (s *Set) Choices() []string {
	return append([]string(nil), s.choices...)
}

// Records returns every record, including failed and malformed ones,
// in insertion order.
func (s *Set) Records() []Record {
	return append([]Record(nil), s.all...)
}

// Successful returns the well-formed successful votes for one question
// in one round, in the order they were recorded.
func (s *Set) Successful(questionID, round int) []Record {
	return append([]Record(nil), s.valid[questionRound{questionID, round}]...)
}

// Questions returns all question IDs present in the set, ascending.
func (s *Set) Questions() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range s.all {
		if !seen[r.QuestionID] {
			seen[r.QuestionID] = true
			ids = append(ids, r.QuestionID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Raters returns all rater IDs present in the set, sorted.
func (s *Set) Raters() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range s.all {
		if !seen[r.RaterID] {
			seen[r.RaterID] = true
			ids = append(ids, r.RaterID)
		}
	}
	sort.Strings(ids)
	return ids
}

// MaxRound returns the highest round number present in the set, or 0
// for an empty set. This is the number of rounds the upstream panel
// actually conducted.
func (s *Set) MaxRound() int {
	return s.maxRnd
}

// RaterVote returns the well-formed successful vote a rater cast on a
// question in a round, if any.
func (s *Set) RaterVote(raterID string, questionID, round int) (Record, bool) {
	for _, r := range s.valid[questionRound{questionID, round}] {
		if r.RaterID == raterID {
			return r, true
		}
	}
	return Record{}, false
}
