// Package panel drives the rater side of the board: a roster of AI
// raters answering exam questions in parallel, producing exactly one
// vote record per (rater, question, round).
package panel

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xerk-dot/medboard/bank"
	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/llm"
	"github.com/xerk-dot/medboard/vote"
)

// Rater is one panel member backed by a hosted model.
type Rater struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Model       string `json:"model"`
	CostTier    int    `json:"cost_tier,omitempty"`
}

// DefaultRaters returns the standard board roster, cheapest first.
func DefaultRaters() []Rater {
	return []Rater{
		{ID: "gpt_4o_mini", DisplayName: "Dr. GPT 4o Mini", Model: "openai/gpt-4o-mini", CostTier: 1},
		{ID: "deepseek_v3", DisplayName: "Dr. DeepSeek V3", Model: "deepseek/deepseek-chat-v3-0324", CostTier: 2},
		{ID: "gpt_4_1_mini", DisplayName: "Dr. GPT 4.1 Mini", Model: "openai/gpt-4.1-mini", CostTier: 3},
		{ID: "mistral_medium", DisplayName: "Dr. Mistral Medium", Model: "mistralai/mistral-medium-3", CostTier: 3},
		{ID: "gpt_4_1", DisplayName: "Dr. GPT 4.1", Model: "openai/gpt-4.1", CostTier: 4},
		{ID: "gpt_4o", DisplayName: "Dr. GPT 4o", Model: "openai/gpt-4o", CostTier: 5},
	}
}

// Enricher augments a question prompt with reference material.
// Implementations must be safe for concurrent use.
type Enricher interface {
	Enrich(ctx context.Context, questionText string) (string, error)
}

// Panel fans questions out to every rater with bounded concurrency.
type Panel struct {
	raters   []Rater
	provider llm.Provider
	enricher Enricher // nil in vanilla mode
	workers  int
}

// defaultWorkers caps concurrent LLM requests when no limit is configured.
const defaultWorkers = 10

// New creates a panel. enricher may be nil (vanilla mode).
func New(raters []Rater, provider llm.Provider, enricher Enricher, workers int) *Panel {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Panel{
		raters:   append([]Rater(nil), raters...),
		provider: provider,
		enricher: enricher,
		workers:  workers,
	}
}

// Raters returns the roster.
func (p *Panel) Raters() []Rater {
	return append([]Rater(nil), p.raters...)
}

// AskRound asks every rater every question for one round and returns
// the vote records, sorted by (rater, question) for stable persistence.
// feedback carries prior-round context keyed by question ID; nil for
// round 1. A rater/question failure yields a Succeeded=false record
// rather than aborting the round.
func (p *Panel) AskRound(ctx context.Context, questions []bank.Question, round int, feedback map[int]consensus.Feedback) []vote.Record {
	type task struct {
		rater    Rater
		question bank.Question
	}

	tasks := make([]task, 0, len(p.raters)*len(questions))
	for _, r := range p.raters {
		for _, q := range questions {
			tasks = append(tasks, task{rater: r, question: q})
		}
	}

	records := make([]vote.Record, len(tasks))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)

	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				records[i] = vote.Record{
					RaterID:    t.rater.ID,
					QuestionID: t.question.Number,
					Round:      round,
				}
				return
			}

			var fb *consensus.Feedback
			if f, ok := feedback[t.question.Number]; ok {
				fb = &f
			}
			records[i] = p.ask(ctx, t.rater, t.question, round, fb)
		}(i, t)
	}
	wg.Wait()

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RaterID != records[j].RaterID {
			return records[i].RaterID < records[j].RaterID
		}
		return records[i].QuestionID < records[j].QuestionID
	})
	return records
}

// ask runs one rater/question exchange and always returns a terminal record.
func (p *Panel) ask(ctx context.Context, r Rater, q bank.Question, round int, fb *consensus.Feedback) vote.Record {
	rec := vote.Record{
		RaterID:    r.ID,
		QuestionID: q.Number,
		Round:      round,
	}

	prompt := BuildQuestionPrompt(q, fb)
	if p.enricher != nil {
		refs, err := p.enricher.Enrich(ctx, q.Text)
		if err != nil {
			slog.Warn("panel: enrichment failed, continuing without references",
				"rater", r.ID, "question", q.Number, "error", err)
		} else if refs != "" {
			prompt += "\n\nReference material:\n" + refs
		}
	}

	start := time.Now()
	resp, err := p.provider.Chat(ctx, llm.ChatRequest{
		Model: r.Model,
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt(q.Type)},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.1,
		MaxTokens:      2000,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("panel: rater failed",
			"rater", r.ID, "question", q.Number, "round", round, "error", err)
		return rec
	}

	choice, reasoning, err := ParseAnswer(resp.Content)
	if err != nil {
		slog.Warn("panel: unparseable answer",
			"rater", r.ID, "question", q.Number, "round", round, "error", err)
		return rec
	}

	rec.Choice = choice
	rec.Rationale = reasoning
	rec.Succeeded = true

	slog.Debug("panel: vote recorded",
		"rater", r.ID,
		"question", q.Number,
		"round", round,
		"choice", choice,
		"elapsed_ms", time.Since(start).Milliseconds())
	return rec
}
