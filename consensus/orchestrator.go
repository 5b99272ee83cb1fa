package consensus

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xerk-dot/medboard/vote"
)

// ErrInvalidConfig is returned for protocol parameters that are
// rejected before any computation begins.
var ErrInvalidConfig = errors.New("consensus: invalid configuration")

// Config holds the voting protocol parameters. Thresholds are vote
// shares in [0,1]; the later-round threshold must not be below the
// first-round one.
type Config struct {
	FirstRoundThreshold float64 `json:"first_round_threshold" yaml:"first_round_threshold"`
	LaterRoundThreshold float64 `json:"later_round_threshold" yaml:"later_round_threshold"`
	MaxRounds           int     `json:"max_rounds" yaml:"max_rounds"`
}

// Validate checks the protocol parameters.
func (c Config) Validate() error {
	if c.FirstRoundThreshold < 0 || c.FirstRoundThreshold > 1 {
		return fmt.Errorf("%w: first round threshold %v outside [0,1]", ErrInvalidConfig, c.FirstRoundThreshold)
	}
	if c.LaterRoundThreshold < 0 || c.LaterRoundThreshold > 1 {
		return fmt.Errorf("%w: later round threshold %v outside [0,1]", ErrInvalidConfig, c.LaterRoundThreshold)
	}
	if c.LaterRoundThreshold < c.FirstRoundThreshold {
		return fmt.Errorf("%w: later round threshold %v below first round threshold %v",
			ErrInvalidConfig, c.LaterRoundThreshold, c.FirstRoundThreshold)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be >= 1, got %d", ErrInvalidConfig, c.MaxRounds)
	}
	return nil
}

// Threshold returns the threshold for a given round number.
func (c Config) Threshold(round int) float64 {
	if round <= 1 {
		return c.FirstRoundThreshold
	}
	return c.LaterRoundThreshold
}

// State is a question's position in the voting protocol.
type State int

const (
	// Pending questions have not reached consensus and have rounds left.
	Pending State = iota
	// Resolved questions reached consensus in some round.
	Resolved
	// Exhausted questions failed every configured round.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RoundResult is the outcome of one voting round: the per-question
// tallies and the questions escalating to the next round.
type RoundResult struct {
	Round     int                 `json:"round"`
	Threshold float64             `json:"threshold"`
	Consensus []QuestionConsensus `json:"consensus"` // ascending by question ID
	Advancing []int               `json:"advancing"` // question IDs, ascending
}

// Feedback packages a failed round's tally for the next round's raters:
// the vote distribution plus one sampled rationale per choice. The
// external rater invoker turns this into prompt context; the
// orchestrator only decides which questions get it and what it says.
type Feedback struct {
	QuestionID int               `json:"question_id"`
	NextRound  int               `json:"next_round"`
	Threshold  float64           `json:"threshold"` // threshold the failed round used
	Counts     map[string]int    `json:"counts"`
	Rationales map[string]string `json:"rationales"` // choice -> first recorded rationale
}

// Outcome is the full replay of the protocol over a vote set.
type Outcome struct {
	Rounds []RoundResult             `json:"rounds"`
	Final  map[int]QuestionConsensus `json:"final"`  // deciding-round tally per question
	States map[int]State             `json:"states"` // terminal state per question
}

// Orchestrator drives the escalating-threshold protocol. It holds no
// mutable state: replaying the same vote set always yields the same
// outcome.
type Orchestrator struct {
	cfg Config
}

// NewOrchestrator validates the protocol parameters and returns an
// orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Config returns the protocol parameters.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run replays every conducted round in the vote set. A question leaves
// the protocol the first round its winning share clears that round's
// threshold; otherwise it advances until rounds run out, at which point
// its last (unachieved) tally is kept as the reported consensus. A
// round with zero successful votes counts as "not achieved" and never
// aborts the replay.
//
// The number of rounds replayed is min(cfg.MaxRounds, set.MaxRound()),
// so a partially-conducted store leaves unresolved questions pending
// instead of falsely exhausting them.
func (o *Orchestrator) Run(set *vote.Set) *Outcome {
	out := &Outcome{
		Final:  make(map[int]QuestionConsensus),
		States: make(map[int]State),
	}

	questions := set.Questions()
	for _, q := range questions {
		out.States[q] = Pending
	}

	conducted := set.MaxRound()
	if conducted > o.cfg.MaxRounds {
		conducted = o.cfg.MaxRounds
	}

	pending := questions
	for round := 1; round <= conducted; round++ {
		threshold := o.cfg.Threshold(round)
		rr := RoundResult{Round: round, Threshold: threshold}

		var next []int
		for _, q := range pending {
			qc := Compute(q, round, set.Successful(q, round), threshold)
			rr.Consensus = append(rr.Consensus, qc)
			out.Final[q] = qc

			if qc.Achieved {
				out.States[q] = Resolved
				continue
			}
			if round == o.cfg.MaxRounds {
				out.States[q] = Exhausted
				continue
			}
			next = append(next, q)
		}
		sort.Ints(next)
		rr.Advancing = next
		out.Rounds = append(out.Rounds, rr)

		slog.Info("consensus: round complete",
			"round", round,
			"threshold", threshold,
			"questions", len(pending),
			"advancing", len(next))

		pending = next
		if len(pending) == 0 {
			break
		}
	}

	return out
}

// NextRoundFeedback builds the context handed to the rater invoker for
// the questions advancing out of a round. Rationales are sampled
// first-seen per choice, so replays produce identical feedback.
func (o *Orchestrator) NextRoundFeedback(set *vote.Set, rr RoundResult) []Feedback {
	byQuestion := make(map[int]QuestionConsensus, len(rr.Consensus))
	for _, qc := range rr.Consensus {
		byQuestion[qc.QuestionID] = qc
	}

	var fbs []Feedback
	for _, q := range rr.Advancing {
		qc := byQuestion[q]
		fb := Feedback{
			QuestionID: q,
			NextRound:  rr.Round + 1,
			Threshold:  rr.Threshold,
			Counts:     qc.ChoiceCounts,
			Rationales: make(map[string]string),
		}
		for _, v := range set.Successful(q, rr.Round) {
			if _, ok := fb.Rationales[v.Choice]; !ok && v.Rationale != "" {
				fb.Rationales[v.Choice] = v.Rationale
			}
		}
		fbs = append(fbs, fb)
	}
	return fbs
}
