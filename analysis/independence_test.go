package analysis

import (
	"reflect"
	"testing"

	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/vote"
)

func v(rater string, q, round int, choice string) vote.Record {
	return vote.Record{RaterID: rater, QuestionID: q, Round: round, Choice: choice, Succeeded: true}
}

func achieved(q, round int, winner string) consensus.QuestionConsensus {
	return consensus.QuestionConsensus{
		QuestionID:    q,
		Round:         round,
		WinningChoice: winner,
		Achieved:      true,
	}
}

func raterByID(t *testing.T, res Result, id string) RaterIndependence {
	t.Helper()
	for _, r := range res.Raters {
		if r.RaterID == id {
			return r
		}
	}
	t.Fatalf("rater %q not in result", id)
	return RaterIndependence{}
}

// ---------------------------------------------------------------------------
// Independence
// ---------------------------------------------------------------------------

func TestAnalyzeDissenterScores(t *testing.T) {
	// Both questions reached a wrong consensus; r3 dissented correctly
	// on one of them.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "A"), v("r3", 1, 1, "B"),
		v("r1", 2, 1, "C"), v("r2", 2, 1, "C"), v("r3", 2, 1, "C"),
	})
	final := map[int]consensus.QuestionConsensus{
		1: achieved(1, 1, "A"),
		2: achieved(2, 1, "C"),
	}
	key := map[int]string{1: "B", 2: "D"}

	res := Analyze(final, set, key)

	r3 := raterByID(t, res, "r3")
	if r3.WrongConsensusQs != 2 {
		t.Fatalf("WrongConsensusQs = %d, want 2", r3.WrongConsensusQs)
	}
	if r3.Independence == nil || *r3.Independence != 0.5 {
		t.Fatalf("r3 independence = %v, want 0.5", r3.Independence)
	}
	if !reflect.DeepEqual(r3.Resisted, []int{1}) {
		t.Errorf("r3 resisted = %v, want [1]", r3.Resisted)
	}

	r1 := raterByID(t, res, "r1")
	if r1.Independence == nil || *r1.Independence != 0 {
		t.Errorf("conforming rater independence = %v, want 0", r1.Independence)
	}
}

func TestAnalyzeNoWrongConsensusIsNil(t *testing.T) {
	// Consensus matched the key everywhere, so independence is
	// undefined rather than zero.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "A"),
	})
	final := map[int]consensus.QuestionConsensus{1: achieved(1, 1, "A")}
	key := map[int]string{1: "A"}

	res := Analyze(final, set, key)

	for _, r := range res.Raters {
		if r.Independence != nil {
			t.Errorf("rater %s independence = %v, want nil", r.RaterID, *r.Independence)
		}
		if r.WrongConsensusQs != 0 {
			t.Errorf("rater %s WrongConsensusQs = %d, want 0", r.RaterID, r.WrongConsensusQs)
		}
	}
}

func TestAnalyzeUnachievedNeverWrong(t *testing.T) {
	// An exhausted question disagrees with the key but never achieved
	// consensus, so it is not in the wrong-consensus set.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "B"),
	})
	final := map[int]consensus.QuestionConsensus{
		1: {QuestionID: 1, Round: 1, WinningChoice: "A", Achieved: false},
	}
	res := Analyze(final, set, map[int]string{1: "B"})

	if got := raterByID(t, res, "r2").WrongConsensusQs; got != 0 {
		t.Fatalf("WrongConsensusQs = %d, want 0 for unachieved questions", got)
	}
}

func TestAnalyzeUnkeyedQuestionSkipped(t *testing.T) {
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r1", 9, 1, "C"),
	})
	final := map[int]consensus.QuestionConsensus{
		1: achieved(1, 1, "A"),
		9: achieved(9, 1, "C"),
	}
	// Question 9 missing from the key: excluded from both W and accuracy.
	res := Analyze(final, set, map[int]string{1: "B"})

	r1 := raterByID(t, res, "r1")
	if r1.WrongConsensusQs != 1 {
		t.Errorf("WrongConsensusQs = %d, want 1", r1.WrongConsensusQs)
	}
	if r1.IndividualAccuracy != 0 {
		t.Errorf("IndividualAccuracy = %v, want 0 (only keyed question answered wrong)", r1.IndividualAccuracy)
	}
}

func TestAnalyzeDecidingRoundVoteCounts(t *testing.T) {
	// r2 was right in round 1 but conformed in round 2, the deciding
	// round. Independence is measured where the consensus formed.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "B"), v("r3", 1, 1, "A"),
		v("r1", 1, 2, "A"), v("r2", 1, 2, "A"), v("r3", 1, 2, "A"),
	})
	final := map[int]consensus.QuestionConsensus{1: achieved(1, 2, "A")}

	res := Analyze(final, set, map[int]string{1: "B"})

	r2 := raterByID(t, res, "r2")
	if r2.Independence == nil || *r2.Independence != 0 {
		t.Fatalf("r2 independence = %v, want 0: deciding-round vote conformed", r2.Independence)
	}
}

func TestAnalyzeIndividualAccuracyFromRoundOne(t *testing.T) {
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r1", 2, 1, "B"), v("r1", 3, 1, "C"), v("r1", 4, 1, "D"),
	})
	final := map[int]consensus.QuestionConsensus{
		1: achieved(1, 1, "A"), 2: achieved(2, 1, "B"),
		3: achieved(3, 1, "C"), 4: achieved(4, 1, "D"),
	}
	key := map[int]string{1: "A", 2: "B", 3: "C", 4: "A"}

	res := Analyze(final, set, key)

	if got := raterByID(t, res, "r1").IndividualAccuracy; got != 0.75 {
		t.Fatalf("IndividualAccuracy = %v, want 0.75", got)
	}
}

// ---------------------------------------------------------------------------
// Groupthink
// ---------------------------------------------------------------------------

func TestAnalyzeGroupthink(t *testing.T) {
	// Q1: wrong consensus, everyone wrong -> groupthink.
	// Q2: wrong consensus, one dissenter right -> not groupthink.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "A"), v("r3", 1, 1, "C"),
		v("r1", 2, 1, "B"), v("r2", 2, 1, "B"), v("r3", 2, 1, "D"),
	})
	final := map[int]consensus.QuestionConsensus{
		1: achieved(1, 1, "A"),
		2: achieved(2, 1, "B"),
	}
	key := map[int]string{1: "B", 2: "D"}

	res := Analyze(final, set, key)

	if !reflect.DeepEqual(res.Groupthink, []int{1}) {
		t.Fatalf("Groupthink = %v, want [1]", res.Groupthink)
	}
}

// ---------------------------------------------------------------------------
// Composite ranking
// ---------------------------------------------------------------------------

func TestCompositeRankingOrderAndWeights(t *testing.T) {
	half, one := 0.5, 1.0
	raters := []RaterIndependence{
		{RaterID: "low", Independence: &half, IndividualAccuracy: 0.5},
		{RaterID: "high", Independence: &one, IndividualAccuracy: 0.9},
		{RaterID: "undefined"}, // nil independence, excluded
	}

	ranking := CompositeRanking(raters)

	if len(ranking) != 2 {
		t.Fatalf("ranking size = %d, want 2 (nil independence excluded)", len(ranking))
	}
	if ranking[0].RaterID != "high" {
		t.Errorf("top rater = %s, want high", ranking[0].RaterID)
	}
	want := 0.6*1.0 + 0.4*0.9
	if ranking[0].Composite != want {
		t.Errorf("composite = %v, want %v", ranking[0].Composite, want)
	}
}

// ---------------------------------------------------------------------------
// Self-correction
// ---------------------------------------------------------------------------

func TestSelfCorrection(t *testing.T) {
	// Question 1 decided in round 2. r1 fixed a wrong answer, r2 broke
	// a right one, r3 held a right one.
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"), v("r2", 1, 1, "B"), v("r3", 1, 1, "B"),
		v("r1", 1, 2, "B"), v("r2", 1, 2, "C"), v("r3", 1, 2, "B"),
	})
	final := map[int]consensus.QuestionConsensus{1: achieved(1, 2, "B")}
	key := map[int]string{1: "B"}

	recs := SelfCorrection(final, set, key)

	byID := make(map[string]RaterCorrection)
	for _, r := range recs {
		byID[r.RaterID] = r
	}
	if got := byID["r1"]; got.CorrectedToRight != 1 || got.MultiRound != 1 {
		t.Errorf("r1 = %+v, want corrected_to_right 1 of 1", got)
	}
	if got := byID["r2"]; got.CorrectedToWrong != 1 {
		t.Errorf("r2 = %+v, want corrected_to_wrong 1", got)
	}
	if got := byID["r3"]; got.StayedRight != 1 {
		t.Errorf("r3 = %+v, want stayed_right 1", got)
	}
}

func TestSelfCorrectionIgnoresSingleRoundQuestions(t *testing.T) {
	set := vote.NewSet(nil, []vote.Record{
		v("r1", 1, 1, "A"),
	})
	final := map[int]consensus.QuestionConsensus{1: achieved(1, 1, "A")}

	recs := SelfCorrection(final, set, map[int]string{1: "A"})
	for _, r := range recs {
		if r.MultiRound != 0 {
			t.Fatalf("rater %s MultiRound = %d, want 0", r.RaterID, r.MultiRound)
		}
	}
}
