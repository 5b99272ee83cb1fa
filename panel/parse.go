package panel

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type answerPayload struct {
	Choice    string `json:"choice"`
	Reasoning string `json:"reasoning"`
}

// Some models wrap JSON mode output in a markdown fence anyway.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

var letterPattern = regexp.MustCompile(`\b([A-D])\b`)

// ParseAnswer extracts the selected choice and reasoning from a rater's
// response. JSON mode output is tried first; otherwise the first
// standalone A-D letter in the text is taken, with the full text as the
// rationale.
func ParseAnswer(content string) (choice, reasoning string, err error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return "", "", fmt.Errorf("empty response")
	}

	candidate := text
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	var payload answerPayload
	if jsonErr := json.Unmarshal([]byte(candidate), &payload); jsonErr == nil {
		c := strings.ToUpper(strings.TrimSpace(payload.Choice))
		if validChoice(c) {
			return c, strings.TrimSpace(payload.Reasoning), nil
		}
	}

	// Fallback: first standalone answer letter in the raw text.
	if m := letterPattern.FindStringSubmatch(text); m != nil {
		return m[1], text, nil
	}

	return "", "", fmt.Errorf("no answer choice found in response")
}

func validChoice(c string) bool {
	switch c {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
