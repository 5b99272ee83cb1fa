// Package medboard runs a multi-round consensus protocol over a panel
// of AI raters answering medical coding exam questions. The panel votes
// on each question, the orchestrator escalates questions that miss the
// agreement threshold into further rounds with prior-round feedback,
// and the analysis side scores the final consensus against an answer
// key and measures each rater's independence from wrong consensus.
package medboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xerk-dot/medboard/analysis"
	"github.com/xerk-dot/medboard/bank"
	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/llm"
	"github.com/xerk-dot/medboard/panel"
	"github.com/xerk-dot/medboard/store"
	"github.com/xerk-dot/medboard/validation"
	"github.com/xerk-dot/medboard/vote"
)

// Board wires the panel, the orchestrator, and the store into one
// runnable pipeline.
type Board struct {
	cfg   Config
	store *store.Store
	panel *panel.Panel
	orch  *consensus.Orchestrator
}

// New builds a board from configuration. The SQLite database is opened
// (and its schema created) at cfg.DBPath, or the default location when
// unset. Callers must Close the board when done.
func New(cfg Config) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	chat, err := llm.NewProvider(cfg.Chat)
	if err != nil {
		st.Close()
		return nil, err
	}

	var enricher panel.Enricher
	if cfg.Mode == ModeEnhanced {
		embedder, err := llm.NewProvider(cfg.Embedding)
		if err != nil {
			st.Close()
			return nil, err
		}
		enricher = panel.NewCodeEnricher(st, embedder, cfg.EnrichTopK)
	}

	orch, err := consensus.NewOrchestrator(cfg.Voting)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Board{
		cfg:   cfg,
		store: st,
		panel: panel.New(cfg.Raters, chat, enricher, cfg.Workers),
		orch:  orch,
	}, nil
}

// Close releases the underlying database.
func (b *Board) Close() error {
	return b.store.Close()
}

// Store exposes the persistence layer for tooling.
func (b *Board) Store() *store.Store {
	return b.store
}

// RunProtocol conducts the full voting protocol over the given
// questions: round 1 over everything, then escalation rounds over the
// questions that missed their threshold, each with prior-round
// feedback. Every round's votes are persisted per rater before the
// next round begins. Returns the final outcome together with the
// complete vote set.
func (b *Board) RunProtocol(ctx context.Context, questions []bank.Question) (*consensus.Outcome, *vote.Set, error) {
	if len(questions) == 0 {
		return nil, nil, ErrNoQuestions
	}

	byNumber := make(map[int]bank.Question, len(questions))
	for _, q := range questions {
		byNumber[q.Number] = q
	}

	var all []vote.Record
	pending := append([]bank.Question(nil), questions...)
	feedback := map[int]consensus.Feedback{}

	for round := 1; round <= b.cfg.Voting.MaxRounds; round++ {
		slog.Info("board: starting round",
			"round", round,
			"questions", len(pending),
			"threshold", b.cfg.Voting.Threshold(round),
			"mode", b.cfg.Mode)

		records := b.panel.AskRound(ctx, pending, round, feedback)
		if err := b.persistRound(ctx, round, records); err != nil {
			return nil, nil, err
		}

		succeeded := 0
		for _, r := range records {
			if r.Succeeded {
				succeeded++
			}
		}
		if succeeded == 0 {
			return nil, nil, fmt.Errorf("%w: round %d produced no usable votes", ErrPanelFailed, round)
		}

		all = append(all, records...)
		set := vote.NewSet(vote.DefaultChoices, all)
		out := b.orch.Run(set)

		last := out.Rounds[len(out.Rounds)-1]
		if len(last.Advancing) == 0 || round == b.cfg.Voting.MaxRounds {
			return out, set, nil
		}

		feedback = map[int]consensus.Feedback{}
		for _, fb := range b.orch.NextRoundFeedback(set, last) {
			feedback[fb.QuestionID] = fb
		}
		pending = pending[:0]
		for _, q := range last.Advancing {
			pending = append(pending, byNumber[q])
		}
	}

	// Unreachable: the loop always returns at MaxRounds.
	set := vote.NewSet(vote.DefaultChoices, all)
	return b.orch.Run(set), set, nil
}

// persistRound writes one round's records, one session per rater so a
// partial re-run supersedes only the raters it reaches.
func (b *Board) persistRound(ctx context.Context, round int, records []vote.Record) error {
	byRater := make(map[string][]vote.Record)
	for _, r := range records {
		byRater[r.RaterID] = append(byRater[r.RaterID], r)
	}

	for _, rater := range b.panel.Raters() {
		recs := byRater[rater.ID]
		if len(recs) == 0 {
			continue
		}
		id, err := b.store.CreateSession(ctx, store.Session{
			RaterID:     rater.ID,
			DisplayName: rater.DisplayName,
			ModelID:     rater.Model,
			Mode:        b.cfg.Mode,
			Round:       round,
		})
		if err != nil {
			return err
		}
		if err := b.store.SaveVotes(ctx, id, recs); err != nil {
			return err
		}
	}
	return nil
}

// Replay rebuilds the protocol outcome from votes already persisted for
// the board's mode, without contacting any rater.
func (b *Board) Replay(ctx context.Context) (*consensus.Outcome, *vote.Set, error) {
	records, err := b.store.LatestVotes(ctx, b.cfg.Mode)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNoVotes
	}
	set := vote.NewSet(vote.DefaultChoices, records)
	return b.orch.Run(set), set, nil
}

// Scorecard is the full post-run analysis bundle.
type Scorecard struct {
	Validation     *validation.Report         `json:"validation"`
	Independence   analysis.Result            `json:"independence"`
	Ranking        []analysis.CompositeScore  `json:"composite_ranking"`
	SelfCorrection []analysis.RaterCorrection `json:"self_correction"`
}

// Score validates the outcome against the answer key and runs the full
// rater analysis. questions supply the per-category breakdown and may
// be nil.
func (b *Board) Score(ctx context.Context, out *consensus.Outcome, set *vote.Set, key map[int]string, questions []bank.Question) (*Scorecard, error) {
	if len(key) == 0 {
		return nil, ErrNoAnswerKey
	}

	sc := &Scorecard{
		Validation:   validation.Validate(out.Final, key, bank.Categories(questions)),
		Independence: analysis.Analyze(out.Final, set, key),
	}
	sc.Ranking = analysis.CompositeRanking(sc.Independence.Raters)
	sc.SelfCorrection = analysis.SelfCorrection(out.Final, set, key)

	if _, err := b.store.SaveReport(ctx, "scorecard", b.cfg.Mode, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// IndexCodeRefs embeds and stores reference code descriptions for
// enhanced-mode enrichment. Existing (code, system) rows are replaced.
func (b *Board) IndexCodeRefs(ctx context.Context, refs []store.CodeRef) error {
	embedder, err := llm.NewProvider(b.cfg.Embedding)
	if err != nil {
		return err
	}

	texts := make([]string, len(refs))
	for i, r := range refs {
		texts[i] = r.Description
	}
	embeddings, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding code references: %w", err)
	}
	if len(embeddings) != len(refs) {
		return fmt.Errorf("embedding count mismatch: %d refs, %d vectors", len(refs), len(embeddings))
	}

	for i, r := range refs {
		if _, err := b.store.InsertCodeRef(ctx, r, embeddings[i]); err != nil {
			return err
		}
	}
	slog.Info("board: code references indexed", "count", len(refs))
	return nil
}
