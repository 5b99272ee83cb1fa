package medboard

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("medboard: invalid configuration")

	// ErrNoVotes is returned when a run produces no vote records at all.
	ErrNoVotes = errors.New("medboard: no vote records")

	// ErrNoQuestions is returned when the question bank is empty.
	ErrNoQuestions = errors.New("medboard: no questions to vote on")

	// ErrNoAnswerKey is returned when validation is requested without a key.
	ErrNoAnswerKey = errors.New("medboard: answer key not loaded")

	// ErrPanelFailed is returned when every rater in a round failed.
	ErrPanelFailed = errors.New("medboard: all raters failed")
)
