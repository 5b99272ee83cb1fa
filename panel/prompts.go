package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xerk-dot/medboard/bank"
	"github.com/xerk-dot/medboard/consensus"
)

const answerFormat = `Respond with a JSON object: {"choice": "A"|"B"|"C"|"D", "reasoning": "brief explanation"}.`

var systemPrompts = map[string]string{
	bank.TypeCPT: `You are a medical coding expert specializing in CPT (Current Procedural Terminology) codes.
You have extensive knowledge of medical procedures and their corresponding CPT codes.
Analyze each question carefully and select the most appropriate CPT code from the given choices.
` + answerFormat,

	bank.TypeICD: `You are a medical coding expert specializing in ICD-10-CM (International Classification of Diseases) codes.
You have extensive knowledge of medical diagnoses and their corresponding ICD-10-CM codes.
Analyze each question carefully and select the most appropriate ICD-10-CM code from the given choices.
` + answerFormat,

	bank.TypeHCPCS: `You are a medical coding expert specializing in HCPCS (Healthcare Common Procedure Coding System) codes.
You have extensive knowledge of medical supplies, equipment, and procedures covered by HCPCS codes.
Analyze each question carefully and select the most appropriate HCPCS code from the given choices.
` + answerFormat,

	bank.TypeOther: `You are a medical expert with comprehensive knowledge of medical terminology, anatomy, physiology, and healthcare procedures.
Analyze each question carefully and select the most appropriate answer from the given choices.
` + answerFormat,
}

// SystemPrompt returns the system prompt for a question type.
func SystemPrompt(questionType string) string {
	if p, ok := systemPrompts[questionType]; ok {
		return p
	}
	return systemPrompts[bank.TypeOther]
}

// BuildQuestionPrompt formats a question with its choices and, on
// escalated rounds, the prior round's vote distribution and sampled
// reasoning so raters can reconsider.
func BuildQuestionPrompt(q bank.Question, fb *consensus.Feedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d: %s\n\n", q.Number, q.Text)

	letters := make([]string, 0, len(q.Choices))
	for l := range q.Choices {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	for _, l := range letters {
		fmt.Fprintf(&b, "%s. %s\n", l, q.Choices[l])
	}

	if fb != nil {
		fmt.Fprintf(&b, "\nThe panel did not reach consensus in the previous round. Vote distribution:\n")
		choices := make([]string, 0, len(fb.Counts))
		for c := range fb.Counts {
			choices = append(choices, c)
		}
		sort.Strings(choices)
		for _, c := range choices {
			fmt.Fprintf(&b, "  %s: %d vote(s)", c, fb.Counts[c])
			if r, ok := fb.Rationales[c]; ok {
				fmt.Fprintf(&b, "; one panelist reasoned: %s", r)
			}
			fmt.Fprintln(&b)
		}
		fmt.Fprintf(&b, "Reconsider the question in light of the panel's reasoning, then vote again. Hold your position if you remain convinced.\n")
	}

	return b.String()
}
