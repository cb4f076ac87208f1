// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newStore(sqlx.NewDb(db, "sqlmock"), testConfig(), zerolog.Nop()), mock
}

func TestStore_UpsertInsertsWhenNoRowMatched(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE video_embeddings SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO video_embeddings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Upsert(context.Background(), processed(meta("v1", "youtube", "T", ""), unit(1, 0, 0))); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_UpsertRetriesTransactionConflict(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE video_embeddings SET").
		WillReturnError(errors.New("TransactionContext Error: Transaction conflict: cannot update a table that has been altered"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE video_embeddings SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Upsert(context.Background(), processed(meta("v1", "youtube", "T", ""), unit(1, 0, 0))); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_ErrorsSurfaceAsStoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("IO Error: disk full")

	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		call   func(*Store) error
		op     string
	}{
		{
			name: "upsert",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("UPDATE video_embeddings SET").WillReturnError(boom)
				m.ExpectRollback()
			},
			call: func(s *Store) error {
				return s.Upsert(context.Background(), processed(meta("v1", "youtube", "T", ""), unit(1, 0, 0)))
			},
			op: "upsert",
		},
		{
			name:   "stats",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery("SELECT processing_status").WillReturnError(boom) },
			call: func(s *Store) error {
				_, err := s.Stats(context.Background())
				return err
			},
			op: "stats",
		},
		{
			name:   "find similar",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery("array_cosine_distance").WillReturnError(boom) },
			call: func(s *Store) error {
				_, err := s.FindSimilar(context.Background(), unit(1, 0, 0), FindOptions{Limit: 3, ExcludeIDs: []string{"x", "y"}})
				return err
			},
			op: "find_similar",
		},
		{
			name:   "mark stale",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec("SET processing_status = 'STALE'").WillReturnError(boom) },
			call: func(s *Store) error {
				_, err := s.MarkStale(context.Background(), 0)
				return err
			},
			op: "mark_stale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, mock := newMockStore(t)
			tt.expect(mock)

			err := tt.call(s)
			var serr *models.StoreError
			if !errors.As(err, &serr) {
				t.Fatalf("error = %v, want StoreError", err)
			}
			if serr.Op != tt.op {
				t.Errorf("Op = %q, want %q", serr.Op, tt.op)
			}
			if !errors.Is(err, boom) {
				t.Error("StoreError should unwrap to the driver error")
			}
			if !models.IsRetryable(err) {
				t.Error("StoreError should be retryable")
			}
		})
	}
}

func TestStore_StatsCountsByStatus(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT processing_status").WillReturnRows(
		sqlmock.NewRows([]string{"processing_status", "n"}).
			AddRow("PENDING", 4).
			AddRow("COMPLETED", 10).
			AddRow("STALE", 2))

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := Stats{Total: 16, Pending: 4, Completed: 10, Stale: 2}
	if *st != want {
		t.Errorf("Stats = %+v, want %+v", *st, want)
	}
}
