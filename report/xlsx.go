package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/xerk-dot/medboard/analysis"
	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/validation"
)

// WriteWorkbook exports a full run as an XLSX workbook with a summary
// sheet, a per-question sheet, and a per-rater sheet. res may be the
// zero Result when no answer key was available.
func WriteWorkbook(path string, out *consensus.Outcome, vr *validation.Report, res analysis.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, out, vr); err != nil {
		return err
	}
	if err := writeQuestionSheet(f, out, vr); err != nil {
		return err
	}
	if err := writeRaterSheet(f, res); err != nil {
		return err
	}

	// The default sheet is replaced by Summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, out *consensus.Outcome, vr *validation.Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	resolved, exhausted := 0, 0
	for _, st := range out.States {
		switch st {
		case consensus.Resolved:
			resolved++
		case consensus.Exhausted:
			exhausted++
		}
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Total Questions", len(out.Final)},
		{"Resolved", resolved},
		{"Exhausted", exhausted},
		{"Rounds Conducted", len(out.Rounds)},
	}
	if vr != nil {
		rows = append(rows,
			[]any{"Consensus Correct", vr.ConsensusCorrect},
			[]any{"Consensus Accuracy", vr.ConsensusAccuracy},
			[]any{"Overall Accuracy", vr.OverallAccuracy},
		)

		cats := make([]string, 0, len(vr.ByCategory))
		for c := range vr.ByCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			st := vr.ByCategory[c]
			rows = append(rows, []any{"Correct (" + c + ")",
				fmt.Sprintf("%d/%d", st.CorrectCount, st.Total)})
		}
	}

	return writeRows(f, sheet, rows)
}

func writeQuestionSheet(f *excelize.File, out *consensus.Outcome, vr *validation.Report) error {
	const sheet = "Questions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	wrong := make(map[int]validation.Mismatch)
	unscored := make(map[int]bool)
	if vr != nil {
		for _, m := range vr.Mismatches {
			wrong[m.QuestionID] = m
		}
		for _, q := range vr.Unscored {
			unscored[q] = true
		}
	}

	ids := make([]int, 0, len(out.Final))
	for q := range out.Final {
		ids = append(ids, q)
	}
	sort.Ints(ids)

	rows := [][]any{{"Question", "State", "Deciding Round", "Winning Choice", "Share", "Votes", "Correct Choice"}}
	for _, q := range ids {
		qc := out.Final[q]
		correct := ""
		if m, ok := wrong[q]; ok {
			correct = m.CorrectChoice
		} else if qc.Achieved && vr != nil && !unscored[q] {
			correct = qc.WinningChoice
		}
		rows = append(rows, []any{
			q, out.States[q].String(), qc.Round, qc.WinningChoice,
			qc.WinningShare, formatCounts(qc.ChoiceCounts), correct,
		})
	}
	return writeRows(f, sheet, rows)
}

func writeRaterSheet(f *excelize.File, res analysis.Result) error {
	const sheet = "Raters"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	rows := [][]any{{"Rater", "Independence", "Resisted", "Wrong-Consensus Qs", "Individual Accuracy"}}
	for _, r := range res.Raters {
		indep := any("undefined")
		if r.Independence != nil {
			indep = *r.Independence
		}
		rows = append(rows, []any{
			r.RaterID, indep, r.CorrectWhenWrong, r.WrongConsensusQs, r.IndividualAccuracy,
		})
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
