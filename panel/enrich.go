package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xerk-dot/medboard/llm"
	"github.com/xerk-dot/medboard/store"
)

// CodeEnricher augments question prompts with the nearest medical code
// descriptions from the reference index (enhanced mode).
type CodeEnricher struct {
	store    *store.Store
	embedder llm.Provider
	topK     int
}

// NewCodeEnricher wires the code-reference index to an embedding provider.
func NewCodeEnricher(s *store.Store, embedder llm.Provider, topK int) *CodeEnricher {
	if topK < 1 {
		topK = 5
	}
	return &CodeEnricher{store: s, embedder: embedder, topK: topK}
}

// Enrich embeds the question text and returns the closest code
// descriptions, one per line. An empty index yields an empty string,
// not an error.
func (e *CodeEnricher) Enrich(ctx context.Context, questionText string) (string, error) {
	n, err := e.store.CountCodeRefs(ctx)
	if err != nil {
		return "", fmt.Errorf("checking code index: %w", err)
	}
	if n == 0 {
		return "", nil
	}

	embeddings, err := e.embedder.Embed(ctx, []string{questionText})
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return "", fmt.Errorf("empty embedding for question")
	}

	refs, err := e.store.NearestCodes(ctx, embeddings[0], e.topK)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, ref := range refs {
		fmt.Fprintf(&b, "%s %s: %s\n", ref.CodeSystem, ref.Code, ref.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
