package analysis

import "sort"

// Composite score weights: independence is the focus of the analysis,
// so it outweighs standalone accuracy.
const (
	independenceWeight = 0.6
	accuracyWeight     = 0.4
)

// CompositeScore ranks a rater by a blend of independence and
// standalone accuracy.
type CompositeScore struct {
	RaterID            string  `json:"rater_id"`
	Composite          float64 `json:"composite_score"`
	Independence       float64 `json:"independence_score"`
	IndividualAccuracy float64 `json:"individual_accuracy"`
}

// CompositeRanking returns raters ordered by composite score,
// descending. Raters whose independence is undefined are excluded
// rather than ranked as if they scored zero.
func CompositeRanking(raters []RaterIndependence) []CompositeScore {
	var scores []CompositeScore
	for _, r := range raters {
		if r.Independence == nil {
			continue
		}
		scores = append(scores, CompositeScore{
			RaterID:            r.RaterID,
			Composite:          independenceWeight*(*r.Independence) + accuracyWeight*r.IndividualAccuracy,
			Independence:       *r.Independence,
			IndividualAccuracy: r.IndividualAccuracy,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Composite > scores[j].Composite
	})
	return scores
}
