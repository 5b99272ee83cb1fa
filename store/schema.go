package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One session per rater per round per mode; the newest session wins
-- when loading votes.
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY,
    rater_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    model_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    round INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Terminal vote records, immutable once written. Failed and malformed
-- votes are stored too; tallying filters them.
CREATE TABLE IF NOT EXISTS votes (
    id INTEGER PRIMARY KEY,
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    rater_id TEXT NOT NULL,
    question_id INTEGER NOT NULL,
    round INTEGER NOT NULL,
    choice TEXT,
    rationale TEXT,
    succeeded INTEGER NOT NULL DEFAULT 0,
    UNIQUE(session_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_question ON votes(question_id, round);

-- Medical code reference descriptions used for prompt enrichment.
CREATE TABLE IF NOT EXISTS code_refs (
    id INTEGER PRIMARY KEY,
    code TEXT NOT NULL,
    code_system TEXT NOT NULL,
    description TEXT NOT NULL,
    UNIQUE(code, code_system)
);

-- Vector embeddings for code descriptions via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_codes USING vec0(
    code_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Serialized consensus/validation/independence reports.
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY,
    kind TEXT NOT NULL,
    mode TEXT NOT NULL,
    payload JSON NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`, embeddingDim)
}
