package analysis

import (
	"sort"

	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/vote"
)

// RaterCorrection tracks how a rater's vote moved between round 1 and
// the deciding round on questions that went to multiple rounds.
type RaterCorrection struct {
	RaterID          string `json:"rater_id"`
	MultiRound       int    `json:"total_multi_round"`
	CorrectedToRight int    `json:"corrected_to_right"` // wrong -> right
	CorrectedToWrong int    `json:"corrected_to_wrong"` // right -> wrong
	StayedRight      int    `json:"stayed_right"`
	StayedWrong      int    `json:"stayed_wrong"`
}

// SelfCorrection classifies each rater's first-round vs deciding-round
// vote on every keyed question that escalated past round 1. Only raters
// who voted in both rounds count toward a question's tallies.
func SelfCorrection(final map[int]consensus.QuestionConsensus, set *vote.Set, key map[int]string) []RaterCorrection {
	byRater := make(map[string]*RaterCorrection)
	for _, id := range set.Raters() {
		byRater[id] = &RaterCorrection{RaterID: id}
	}

	for _, q := range set.Questions() {
		want, ok := key[q]
		if !ok {
			continue
		}
		qc, ok := final[q]
		if !ok || qc.Round <= 1 {
			continue
		}
		for id, rec := range byRater {
			first, ok1 := set.RaterVote(id, q, 1)
			last, ok2 := set.RaterVote(id, q, qc.Round)
			if !ok1 || !ok2 {
				continue
			}
			rec.MultiRound++
			firstRight := first.Choice == want
			lastRight := last.Choice == want
			switch {
			case firstRight && lastRight:
				rec.StayedRight++
			case !firstRight && lastRight:
				rec.CorrectedToRight++
			case firstRight && !lastRight:
				rec.CorrectedToWrong++
			default:
				rec.StayedWrong++
			}
		}
	}

	out := make([]RaterCorrection, 0, len(byRater))
	for _, rec := range byRater {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RaterID < out[j].RaterID })
	return out
}
