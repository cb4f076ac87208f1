// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const jobKeyPrefix = "job:"

// Store persists jobs in BadgerDB.
type Store struct {
	db    *badger.DB
	owned bool
}

// OpenStore opens (or creates) the job database described by cfg.
func OpenStore(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return &Store{db: db, owned: true}, nil
}

// NewStore wraps an already open database. Close does not close db.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying database so other components can share it.
func (s *Store) DB() *badger.DB {
	return s.db
}

func jobKey(id string) []byte {
	return []byte(jobKeyPrefix + id)
}

// Save writes job, replacing any previous version.
func (s *Store) Save(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
}

// Get loads a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	var job Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// List returns every stored job accepted by keep. A nil keep returns all.
func (s *Store) List(keep func(*Job) bool) ([]*Job, error) {
	var jobs []*Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var job Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if keep == nil || keep(&job) {
				jobs = append(jobs, &job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes jobs by ID in a single transaction.
func (s *Store) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range ids {
		if err := wb.Delete(jobKey(id)); err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
	}
	return wb.Flush()
}

// RunGC reclaims value log space. badger.ErrNoRewrite means there was
// nothing to collect.
func (s *Store) RunGC() error {
	if s.db.Opts().InMemory {
		return nil
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close closes the database if this Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
