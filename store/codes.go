package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// CodeRef is one medical code description used for prompt enrichment.
type CodeRef struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	CodeSystem  string  `json:"code_system"` // HCPCS, ICD, CPT
	Description string  `json:"description"`
	Distance    float64 `json:"distance,omitempty"` // populated by NearestCodes
}

// InsertCodeRef stores a code description with its embedding. Existing
// (code, system) rows are replaced along with their vector.
func (s *Store) InsertCodeRef(ctx context.Context, ref CodeRef, embedding []float32) (int64, error) {
	if len(embedding) != s.embeddingDim {
		return 0, fmt.Errorf("embedding dim %d does not match store dim %d", len(embedding), s.embeddingDim)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO code_refs (code, code_system, description)
		VALUES (?, ?, ?)
		ON CONFLICT(code, code_system) DO UPDATE SET description = excluded.description`,
		ref.Code, ref.CodeSystem, ref.Description); err != nil {
		return 0, fmt.Errorf("inserting code ref: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM code_refs WHERE code = ? AND code_system = ?",
		ref.Code, ref.CodeSystem).Scan(&id); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_codes (code_id, embedding) VALUES (?, ?)",
		id, serializeFloat32(embedding)); err != nil {
		return 0, fmt.Errorf("inserting code embedding: %w", err)
	}

	return id, tx.Commit()
}

// NearestCodes performs a KNN search returning the top-k code
// references closest to the query embedding.
func (s *Store) NearestCodes(ctx context.Context, queryEmbedding []float32, k int) ([]CodeRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.code_id, v.distance, c.code, c.code_system, c.description
		FROM vec_codes v
		JOIN code_refs c ON c.id = v.code_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var refs []CodeRef
	for rows.Next() {
		var ref CodeRef
		if err := rows.Scan(&ref.ID, &ref.Distance, &ref.Code, &ref.CodeSystem, &ref.Description); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CountCodeRefs returns the number of stored code references.
func (s *Store) CountCodeRefs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM code_refs").Scan(&n)
	return n, err
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
