// Package report renders consensus, validation, and independence
// results as human-readable text, JSON documents, and XLSX workbooks.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xerk-dot/medboard/analysis"
	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/validation"
)

// WriteJSON serializes v to path with indentation.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// FormatConsensus produces a human-readable summary of a protocol run.
func FormatConsensus(out *consensus.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Consensus Summary ===\n")

	total := len(out.Final)
	resolved, exhausted := 0, 0
	for _, st := range out.States {
		switch st {
		case consensus.Resolved:
			resolved++
		case consensus.Exhausted:
			exhausted++
		}
	}
	fmt.Fprintf(&b, "Questions: %d | Resolved: %d (%.1f%%) | Exhausted: %d | Pending: %d\n",
		total, resolved, rate(resolved, total), exhausted, total-resolved-exhausted)

	for _, rr := range out.Rounds {
		achieved := 0
		for _, qc := range rr.Consensus {
			if qc.Achieved {
				achieved++
			}
		}
		fmt.Fprintf(&b, "Round %d (threshold %.0f%%): %d/%d achieved, %d advancing\n",
			rr.Round, rr.Threshold*100, achieved, len(rr.Consensus), len(rr.Advancing))
	}

	var unresolved []consensus.QuestionConsensus
	for _, qc := range out.Final {
		if !qc.Achieved {
			unresolved = append(unresolved, qc)
		}
	}
	sort.Slice(unresolved, func(i, j int) bool { return unresolved[i].QuestionID < unresolved[j].QuestionID })

	if len(unresolved) > 0 {
		fmt.Fprintf(&b, "\nQuestions without consensus (%d):\n", len(unresolved))
		for _, qc := range unresolved {
			fmt.Fprintf(&b, "  Q%d: %.1f%% for choice %s (votes: %s)\n",
				qc.QuestionID, qc.WinningShare*100, qc.WinningChoice, formatCounts(qc.ChoiceCounts))
		}
	}
	return b.String()
}

// FormatValidation produces a human-readable validation summary.
func FormatValidation(r *validation.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Validation Summary ===\n")
	fmt.Fprintf(&b, "Total Questions: %d\n", r.TotalQuestions)
	fmt.Fprintf(&b, "Consensus Achieved: %d/%d (%.1f%%)\n",
		r.ConsensusAchieved, r.TotalQuestions, rate(r.ConsensusAchieved, r.TotalQuestions))
	fmt.Fprintf(&b, "Consensus Correct: %d/%d (%.1f%% of consensus)\n",
		r.ConsensusCorrect, r.ConsensusAchieved, r.ConsensusAccuracy*100)
	fmt.Fprintf(&b, "Overall Accuracy: %d/%d (%.1f%% of all questions)\n\n",
		r.ConsensusCorrect, r.TotalQuestions, r.OverallAccuracy*100)

	if len(r.ByCategory) > 0 {
		cats := make([]string, 0, len(r.ByCategory))
		for c := range r.ByCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		fmt.Fprintf(&b, "Accuracy by Question Type:\n")
		fmt.Fprintf(&b, "  %-8s %-6s %-10s %-8s %s\n", "Type", "Total", "Consensus", "Correct", "Accuracy")
		for _, c := range cats {
			st := r.ByCategory[c]
			fmt.Fprintf(&b, "  %-8s %-6d %-10d %-8d %.1f%%\n",
				c, st.Total, st.ConsensusCount, st.CorrectCount, rate(st.CorrectCount, st.ConsensusCount))
		}
		fmt.Fprintln(&b)
	}

	if len(r.Mismatches) > 0 {
		fmt.Fprintf(&b, "Incorrect Consensus Decisions (%d):\n", len(r.Mismatches))
		for _, m := range r.Mismatches {
			fmt.Fprintf(&b, "  Q%d: Consensus=%s (%.1f%%), Correct=%s (votes: %s)\n",
				m.QuestionID, m.ConsensusChoice, m.ConsensusShare*100, m.CorrectChoice, formatCounts(m.VoteBreakdown))
		}
	}

	if len(r.Unscored) > 0 {
		fmt.Fprintf(&b, "\nUnscored questions missing from answer key: %v\n", r.Unscored)
	}
	return b.String()
}

// FormatIndependence produces a human-readable independence ranking.
func FormatIndependence(res analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Consensus Independence ===\n")

	if len(res.Raters) == 0 {
		fmt.Fprintln(&b, "No raters to analyze.")
		return b.String()
	}

	wrongTotal := res.Raters[0].WrongConsensusQs
	fmt.Fprintf(&b, "Wrong-consensus questions: %d\n\n", wrongTotal)

	ranked := append([]analysis.RaterIndependence(nil), res.Raters...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := -1.0, -1.0
		if ranked[i].Independence != nil {
			si = *ranked[i].Independence
		}
		if ranked[j].Independence != nil {
			sj = *ranked[j].Independence
		}
		return si > sj
	})

	for i, r := range ranked {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, r.RaterID)
		if r.Independence == nil {
			fmt.Fprintf(&b, "    Independence: undefined (no wrong-consensus questions)\n")
		} else {
			fmt.Fprintf(&b, "    Independence: %.3f (%d/%d)\n", *r.Independence, r.CorrectWhenWrong, r.WrongConsensusQs)
		}
		fmt.Fprintf(&b, "    Individual Accuracy: %.3f\n", r.IndividualAccuracy)
		if len(r.Resisted) > 0 {
			fmt.Fprintf(&b, "    Resisted on questions: %v\n", r.Resisted)
		}
	}

	if len(res.Groupthink) > 0 {
		fmt.Fprintf(&b, "\nGroupthink questions (no rater voted correctly): %v\n", res.Groupthink)
	}

	if ranking := analysis.CompositeRanking(res.Raters); len(ranking) > 0 {
		fmt.Fprintf(&b, "\nComposite Ranking (60%% independence + 40%% accuracy):\n")
		for i, s := range ranking {
			fmt.Fprintf(&b, "%2d. %-25s %.3f\n", i+1, s.RaterID, s.Composite)
		}
	}
	return b.String()
}

// FormatSelfCorrection summarizes cross-round vote movement.
func FormatSelfCorrection(recs []analysis.RaterCorrection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Self-Correction (Multi-Round Questions) ===\n")
	fmt.Fprintf(&b, "  %-25s %-9s %-9s %-13s %s\n", "Rater", "Improved", "Worsened", "Stayed Right", "Stayed Wrong")
	any := false
	for _, r := range recs {
		if r.MultiRound == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "  %-25s %-9d %-9d %-13d %d\n",
			r.RaterID, r.CorrectedToRight, r.CorrectedToWrong, r.StayedRight, r.StayedWrong)
	}
	if !any {
		fmt.Fprintln(&b, "  No questions went to multiple rounds.")
	}
	return b.String()
}

func formatCounts(counts map[string]int) string {
	choices := make([]string, 0, len(counts))
	for c := range counts {
		choices = append(choices, c)
	}
	sort.Strings(choices)
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		parts = append(parts, fmt.Sprintf("%s:%d", c, counts[c]))
	}
	return strings.Join(parts, ", ")
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
