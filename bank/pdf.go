package bank

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	questionStart = regexp.MustCompile(`^(\d{1,3})[.)]\s+(.*)`)
	choiceStart   = regexp.MustCompile(`^([A-D])[.)]\s+(.*)`)
)

// ExtractQuestions pulls numbered multiple-choice questions out of an
// exam PDF. Pages that fail text extraction are skipped; the question
// numbering in the document is preserved.
func ExtractQuestions(path string) ([]Question, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}

	questions := ParseQuestionLines(lines)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found in %s", path)
	}
	return questions, nil
}

// ParseQuestionLines turns extracted text lines into questions. A
// question starts at "<number>." or "<number>)" and collects text until
// the first "A." choice; each of A-D then collects until the next
// choice or the next question. Questions without a full A-D choice set
// are dropped.
func ParseQuestionLines(lines []string) []Question {
	var questions []Question
	var cur *Question
	var curChoice string

	flush := func() {
		if cur == nil {
			return
		}
		if len(cur.Choices) == 4 && cur.Text != "" {
			cur.Text = strings.TrimSpace(cur.Text)
			for k, v := range cur.Choices {
				cur.Choices[k] = strings.TrimSpace(v)
			}
			cur.Type = Classify(cur.Text)
			questions = append(questions, *cur)
		}
		cur = nil
		curChoice = ""
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := questionStart.FindStringSubmatch(line); m != nil {
			num, err := strconv.Atoi(m[1])
			if err == nil {
				flush()
				cur = &Question{
					Number:  num,
					Text:    m[2],
					Choices: make(map[string]string, 4),
				}
				continue
			}
		}

		if cur == nil {
			continue
		}

		if m := choiceStart.FindStringSubmatch(line); m != nil {
			curChoice = m[1]
			cur.Choices[curChoice] = m[2]
			continue
		}

		// Continuation line: belongs to the open choice, else the stem.
		if curChoice != "" {
			cur.Choices[curChoice] += " " + line
		} else {
			cur.Text += " " + line
		}
	}
	flush()

	return questions
}
