package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newStoreWithMock(t *testing.T) (*ChunkStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkStore{db: db}, mock, func() { _ = db.Close() }
}

func TestGetChunksByIDsBatchesIntoOneQuery(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"chunk_id", "patent_id", "level", "title", "claim_no", "text"}).
		AddRow("c1", "US1", "claim", "Solar tracker", 3, "full claim text").
		AddRow("c2", "US2", "patent", "", nil, "abstract text")

	mock.ExpectQuery("SELECT chunk_id, patent_id, level").
		WithArgs("c1", "c2", "c3").
		WillReturnRows(rows)

	docs, err := store.GetChunksByIDs(context.Background(), []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 hydrated docs, got %d", len(docs))
	}
	c1 := docs["c1"]
	if c1.Text != "full claim text" || c1.Title != "Solar tracker" {
		t.Fatalf("unexpected c1: %+v", c1)
	}
	if c1.ClaimNo == nil || *c1.ClaimNo != 3 {
		t.Fatalf("expected claim_no 3, got %v", c1.ClaimNo)
	}
	c2 := docs["c2"]
	if c2.ClaimNo != nil {
		t.Fatalf("expected nil claim_no for patent-level doc, got %v", c2.ClaimNo)
	}
	// c3 is simply missing, never an error.
	if _, ok := docs["c3"]; ok {
		t.Fatalf("did not expect a doc for missing id c3")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetChunksByIDsEmptyInputSkipsQuery(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	docs, err := store.GetChunksByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(docs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetChunksByIDsQueryErrorPropagates(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT chunk_id, patent_id, level").
		WithArgs("c1").
		WillReturnError(errors.New("connection reset"))

	if _, err := store.GetChunksByIDs(context.Background(), []string{"c1"}); err == nil {
		t.Fatal("expected query error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaAcquiresAdvisoryLock(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026082301)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS patent_chunks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
