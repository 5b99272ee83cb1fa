// Package analysis measures rater behavior against the final consensus:
// how often a rater resisted a wrong consensus (independence), which
// questions no rater got right (groupthink), and how raters changed
// their votes across rounds (self-correction).
package analysis

import (
	"sort"

	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/vote"
)

// RaterIndependence scores one rater's resistance to wrong consensus.
// Independence is nil (JSON null) when there were no wrong-consensus
// questions at all, which is distinct from an independence of zero.
type RaterIndependence struct {
	RaterID            string   `json:"rater_id"`
	Independence       *float64 `json:"independence_score"`
	CorrectWhenWrong   int      `json:"correct_when_consensus_wrong"`
	WrongConsensusQs   int      `json:"total_wrong_consensus_questions"`
	IndividualAccuracy float64  `json:"individual_accuracy"`
	Resisted           []int    `json:"resisted_question_ids"` // ascending
}

// Result bundles the independence records with the groupthink set.
type Result struct {
	Raters     []RaterIndependence `json:"raters"`     // sorted by rater ID
	Groupthink []int               `json:"groupthink"` // question IDs, ascending
}

// Analyze computes per-rater independence and the groupthink set.
//
// The wrong-consensus set W contains every question whose final
// consensus was achieved but disagrees with the answer key. A rater's
// independence is the fraction of W where their vote in the deciding
// round matched the key. A question lands in the groupthink set when it
// is in W and literally no rater voted correctly in the deciding round.
//
// Individual accuracy is the rater's standalone round-1 accuracy over
// the keyed questions they answered, independent of consensus.
func Analyze(final map[int]consensus.QuestionConsensus, set *vote.Set, key map[int]string) Result {
	var wrong []int
	for q, qc := range final {
		correct, ok := key[q]
		if !ok {
			continue // unscored: the validator reports these
		}
		if qc.Achieved && qc.WinningChoice != correct {
			wrong = append(wrong, q)
		}
	}
	sort.Ints(wrong)

	res := Result{}
	for _, raterID := range set.Raters() {
		rec := RaterIndependence{
			RaterID:          raterID,
			WrongConsensusQs: len(wrong),
		}

		for _, q := range wrong {
			v, ok := set.RaterVote(raterID, q, final[q].Round)
			if ok && v.Choice == key[q] {
				rec.CorrectWhenWrong++
				rec.Resisted = append(rec.Resisted, q)
			}
		}
		if len(wrong) > 0 {
			score := float64(rec.CorrectWhenWrong) / float64(len(wrong))
			rec.Independence = &score
		}

		rec.IndividualAccuracy = individualAccuracy(set, raterID, key)
		res.Raters = append(res.Raters, rec)
	}

	for _, q := range wrong {
		anyCorrect := false
		for _, v := range set.Successful(q, final[q].Round) {
			if v.Choice == key[q] {
				anyCorrect = true
				break
			}
		}
		if !anyCorrect {
			res.Groupthink = append(res.Groupthink, q)
		}
	}

	return res
}

// individualAccuracy is the rater's round-1 accuracy over keyed
// questions they answered. Zero when they answered none.
func individualAccuracy(set *vote.Set, raterID string, key map[int]string) float64 {
	answered, correct := 0, 0
	for _, q := range set.Questions() {
		want, ok := key[q]
		if !ok {
			continue
		}
		v, ok := set.RaterVote(raterID, q, 1)
		if !ok {
			continue
		}
		answered++
		if v.Choice == want {
			correct++
		}
	}
	if answered == 0 {
		return 0
	}
	return float64(correct) / float64(answered)
}
