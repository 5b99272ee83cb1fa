//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xerk-dot/medboard/vote"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"), 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

// ---------------------------------------------------------------------------
// Sessions and votes
// ---------------------------------------------------------------------------

func testSession(rater string, round int) Session {
	return Session{
		RaterID:     rater,
		DisplayName: "Dr. " + rater,
		ModelID:     "openai/" + rater,
		Mode:        "vanilla",
		Round:       round,
	}
}

func TestSaveAndLoadVotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, testSession("r1", 1))
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero session id")
	}

	recs := []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "A", Rationale: "why", Succeeded: true},
		{RaterID: "r1", QuestionID: 2, Round: 1, Succeeded: false},
	}
	if err := s.SaveVotes(ctx, id, recs); err != nil {
		t.Fatalf("saving votes: %v", err)
	}

	got, err := s.LatestVotes(ctx, "vanilla")
	if err != nil {
		t.Fatalf("loading votes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d votes, want 2", len(got))
	}
	if got[0].Choice != "A" || got[0].Rationale != "why" || !got[0].Succeeded {
		t.Errorf("vote 0 = %+v, lost fields on round trip", got[0])
	}
	if got[1].Succeeded {
		t.Error("failed vote should stay failed")
	}
}

func TestSaveVotesRejectsDuplicateQuestionInSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateSession(ctx, testSession("r1", 1))
	recs := []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "A", Succeeded: true},
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "B", Succeeded: true},
	}
	if err := s.SaveVotes(ctx, id, recs); err == nil {
		t.Fatal("expected unique constraint error for duplicate question in one session")
	}

	// The transaction rolled back: nothing persisted.
	got, err := s.LatestVotes(ctx, "vanilla")
	if err != nil {
		t.Fatalf("loading votes: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("loaded %d votes after failed save, want 0", len(got))
	}
}

func TestLatestVotesNewestSessionWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.CreateSession(ctx, testSession("r1", 1))
	if err := s.SaveVotes(ctx, first, []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "A", Succeeded: true},
	}); err != nil {
		t.Fatalf("saving first session: %v", err)
	}

	second, _ := s.CreateSession(ctx, testSession("r1", 1))
	if err := s.SaveVotes(ctx, second, []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "D", Succeeded: true},
	}); err != nil {
		t.Fatalf("saving second session: %v", err)
	}

	got, err := s.LatestVotes(ctx, "vanilla")
	if err != nil {
		t.Fatalf("loading votes: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("loaded %d votes, want 1 (superseded session excluded)", len(got))
	}
	if got[0].Choice != "D" {
		t.Errorf("choice = %q, want newest session's D", got[0].Choice)
	}
}

func TestLatestVotesFiltersMode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vanilla, _ := s.CreateSession(ctx, testSession("r1", 1))
	s.SaveVotes(ctx, vanilla, []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "A", Succeeded: true},
	})

	enhanced := testSession("r1", 1)
	enhanced.Mode = "enhanced"
	eid, _ := s.CreateSession(ctx, enhanced)
	s.SaveVotes(ctx, eid, []vote.Record{
		{RaterID: "r1", QuestionID: 1, Round: 1, Choice: "B", Succeeded: true},
	})

	got, err := s.LatestVotes(ctx, "enhanced")
	if err != nil {
		t.Fatalf("loading votes: %v", err)
	}
	if len(got) != 1 || got[0].Choice != "B" {
		t.Fatalf("enhanced votes = %+v, want single B", got)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateSession(ctx, testSession("r1", 1))
	s.CreateSession(ctx, testSession("r2", 1))

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("listing sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].CreatedAt == "" {
		t.Error("expected created_at to be populated")
	}
}

// ---------------------------------------------------------------------------
// Code references / vector search
// ---------------------------------------------------------------------------

func TestInsertAndSearchCodeRefs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	refs := []struct {
		ref CodeRef
		vec []float32
	}{
		{CodeRef{Code: "11000", CodeSystem: "CPT", Description: "debridement of skin"}, []float32{1, 0, 0, 0}},
		{CodeRef{Code: "J20.9", CodeSystem: "ICD", Description: "acute bronchitis"}, []float32{0, 1, 0, 0}},
		{CodeRef{Code: "E0110", CodeSystem: "HCPCS", Description: "crutches underarm"}, []float32{0, 0, 1, 0}},
	}
	for _, r := range refs {
		if _, err := s.InsertCodeRef(ctx, r.ref, r.vec); err != nil {
			t.Fatalf("inserting %s: %v", r.ref.Code, err)
		}
	}

	n, err := s.CountCodeRefs(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountCodeRefs = %d, %v, want 3", n, err)
	}

	got, err := s.NearestCodes(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("searching codes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].Code != "11000" {
		t.Errorf("nearest = %s, want 11000", got[0].Code)
	}
}

func TestInsertCodeRefUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref := CodeRef{Code: "11000", CodeSystem: "CPT", Description: "old description"}
	id1, err := s.InsertCodeRef(ctx, ref, []float32{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	ref.Description = "new description"
	id2, err := s.InsertCodeRef(ctx, ref, []float32{0, 1, 0, 0})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("upsert produced new id %d, want %d", id2, id1)
	}

	got, err := s.NearestCodes(ctx, []float32{0, 1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("searching codes: %v", err)
	}
	if got[0].Description != "new description" {
		t.Errorf("description = %q, want updated", got[0].Description)
	}
	if n, _ := s.CountCodeRefs(ctx); n != 1 {
		t.Errorf("CountCodeRefs = %d, want 1", n)
	}
}

func TestInsertCodeRefDimMismatch(t *testing.T) {
	s := newTestStore(t)
	ref := CodeRef{Code: "X", CodeSystem: "CPT", Description: "x"}
	if _, err := s.InsertCodeRef(context.Background(), ref, []float32{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func TestSaveAndLoadReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Accuracy float64 `json:"accuracy"`
	}
	if _, err := s.SaveReport(ctx, "scorecard", "vanilla", payload{Accuracy: 0.84}); err != nil {
		t.Fatalf("saving report: %v", err)
	}
	if _, err := s.SaveReport(ctx, "scorecard", "vanilla", payload{Accuracy: 0.91}); err != nil {
		t.Fatalf("saving second report: %v", err)
	}

	var got payload
	if err := s.LoadLatestReport(ctx, "scorecard", "vanilla", &got); err != nil {
		t.Fatalf("loading report: %v", err)
	}
	if got.Accuracy != 0.91 {
		t.Errorf("Accuracy = %v, want latest 0.91", got.Accuracy)
	}

	if err := s.LoadLatestReport(ctx, "missing", "vanilla", &got); err == nil {
		t.Error("expected error for missing report kind")
	}
}
