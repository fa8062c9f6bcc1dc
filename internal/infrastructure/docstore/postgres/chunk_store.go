package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

// ChunkStore holds the canonical text of every indexed chunk. The vector
// and lexical indexes carry truncated snippets only; evidence assembly
// hydrates full text from here.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS patent_chunks (
	chunk_id TEXT PRIMARY KEY,
	patent_id TEXT NOT NULL,
	level TEXT NOT NULL,
	title TEXT,
	claim_no INTEGER,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_patent_chunks_patent_id ON patent_chunks(patent_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GetChunksByIDs fetches all requested chunks in a single query. Ids absent
// from the table are simply missing from the returned map, never an error.
func (s *ChunkStore) GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.ChunkDocument, error) {
	out := make(map[string]domain.ChunkDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT chunk_id, patent_id, level, COALESCE(title, ''), claim_no, text
FROM patent_chunks
WHERE chunk_id IN (%s)
`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc domain.ChunkDocument
		var claimNo sql.NullInt64
		if err := rows.Scan(&doc.ChunkID, &doc.PatentID, &doc.Level, &doc.Title, &claimNo, &doc.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if claimNo.Valid {
			n := int(claimNo.Int64)
			doc.ClaimNo = &n
		}
		out[doc.ChunkID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
