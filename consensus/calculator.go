// Package consensus implements the escalating-threshold voting
// protocol: per-round majority tallies and the multi-round orchestration
// that escalates unresolved questions under stricter thresholds.
package consensus

import (
	"github.com/xerk-dot/medboard/vote"
)

// QuestionConsensus is the derived tally for one question in one round.
// It is a pure view over the vote set: safe to discard and recompute.
type QuestionConsensus struct {
	QuestionID    int            `json:"question_id"`
	Round         int            `json:"round"`
	ChoiceCounts  map[string]int `json:"choice_counts"`
	TotalVotes    int            `json:"total_votes"`
	WinningChoice string         `json:"winning_choice,omitempty"` // empty when no votes
	WinningShare  float64        `json:"winning_share"`
	ThresholdUsed float64        `json:"threshold_used"`
	Achieved      bool           `json:"achieved"`
}

// Compute tallies the successful votes for one question in one round
// against a threshold. Ties are broken by the choice first seen among
// the recorded votes, which keeps recomputation deterministic. With no
// votes it returns an unachieved consensus with an empty winner; it
// never fails.
func Compute(questionID, round int, votes []vote.Record, threshold float64) QuestionConsensus {
	qc := QuestionConsensus{
		QuestionID:    questionID,
		Round:         round,
		ChoiceCounts:  make(map[string]int),
		ThresholdUsed: threshold,
	}

	var order []string // choices in first-seen order, for tie-breaking
	for _, v := range votes {
		if qc.ChoiceCounts[v.Choice] == 0 {
			order = append(order, v.Choice)
		}
		qc.ChoiceCounts[v.Choice]++
		qc.TotalVotes++
	}

	if qc.TotalVotes == 0 {
		return qc
	}

	best := order[0]
	for _, c := range order[1:] {
		if qc.ChoiceCounts[c] > qc.ChoiceCounts[best] {
			best = c
		}
	}

	qc.WinningChoice = best
	qc.WinningShare = float64(qc.ChoiceCounts[best]) / float64(qc.TotalVotes)
	qc.Achieved = qc.WinningShare >= threshold
	return qc
}
