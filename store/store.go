// Package store persists panel sessions, vote records, code reference
// embeddings, and serialized reports in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xerk-dot/medboard/vote"
)

func init() {
	sqlite_vec.Auto()
}

// Session is one rater's voting pass: one round, one mode.
type Session struct {
	ID          int64  `json:"id"`
	RaterID     string `json:"rater_id"`
	DisplayName string `json:"display_name"`
	ModelID     string `json:"model_id"`
	Mode        string `json:"mode"` // vanilla or enhanced
	Round       int    `json:"round"`
	CreatedAt   string `json:"created_at"`
}

// Store wraps the SQLite database for all medboard persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured vector dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Session and vote operations ---

// CreateSession inserts a session row and returns its ID.
func (s *Store) CreateSession(ctx context.Context, sess Session) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (rater_id, display_name, model_id, mode, round)
		VALUES (?, ?, ?, ?, ?)`,
		sess.RaterID, sess.DisplayName, sess.ModelID, sess.Mode, sess.Round)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return res.LastInsertId()
}

// SaveVotes writes a session's terminal vote records in one transaction.
func (s *Store) SaveVotes(ctx context.Context, sessionID int64, records []vote.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO votes (session_id, rater_id, question_id, round, choice, rationale, succeeded)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, sessionID, r.RaterID, r.QuestionID,
			r.Round, r.Choice, r.Rationale, r.Succeeded); err != nil {
			return fmt.Errorf("inserting vote (rater=%s question=%d): %w", r.RaterID, r.QuestionID, err)
		}
	}
	return tx.Commit()
}

// LatestVotes loads the vote records from the newest session per
// (rater, round) for a mode. Earlier sessions for the same slot are
// superseded, matching the "latest result per rater" discovery rule.
func (s *Store) LatestVotes(ctx context.Context, mode string) ([]vote.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.rater_id, v.question_id, v.round, v.choice, v.rationale, v.succeeded
		FROM votes v
		JOIN sessions sess ON sess.id = v.session_id
		WHERE sess.mode = ? AND sess.id = (
			SELECT id FROM sessions s2
			WHERE s2.rater_id = sess.rater_id
			  AND s2.round = sess.round
			  AND s2.mode = sess.mode
			ORDER BY s2.created_at DESC, s2.id DESC
			LIMIT 1
		)
		ORDER BY v.rater_id, v.round, v.question_id`, mode)
	if err != nil {
		return nil, fmt.Errorf("loading votes: %w", err)
	}
	defer rows.Close()

	var records []vote.Record
	for rows.Next() {
		var r vote.Record
		var choice, rationale sql.NullString
		if err := rows.Scan(&r.RaterID, &r.QuestionID, &r.Round, &choice, &rationale, &r.Succeeded); err != nil {
			return nil, err
		}
		r.Choice = choice.String
		r.Rationale = rationale.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rater_id, display_name, model_id, mode, round, created_at
		FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.RaterID, &sess.DisplayName,
			&sess.ModelID, &sess.Mode, &sess.Round, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// --- Report operations ---

// SaveReport serializes a report payload to JSON and stores it.
func (s *Store) SaveReport(ctx context.Context, kind, mode string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshaling %s report: %w", kind, err)
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO reports (kind, mode, payload) VALUES (?, ?, ?)",
		kind, mode, string(data))
	if err != nil {
		return 0, fmt.Errorf("inserting %s report: %w", kind, err)
	}
	return res.LastInsertId()
}

// LoadLatestReport unmarshals the newest report of a kind/mode into out.
func (s *Store) LoadLatestReport(ctx context.Context, kind, mode string, out any) error {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM reports
		WHERE kind = ? AND mode = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, kind, mode).Scan(&payload)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), out)
}
