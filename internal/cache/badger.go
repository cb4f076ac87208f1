// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a RemoteStore backed by an embedded BadgerDB. Entry expiry
// uses Badger's native TTL.
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
	owned  bool
}

// OpenBadgerStore opens (or creates) a Badger database for the cache.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	s := NewBadgerStore(db, cfg.KeyPrefix)
	s.owned = true
	return s, nil
}

// NewBadgerStore wraps a database shared with other components. Close does
// not close a shared database.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = "cache:"
	}
	return &BadgerStore{db: db, prefix: []byte(prefix)}
}

func (b *BadgerStore) key(k string) []byte {
	return append(append([]byte{}, b.prefix...), k...)
}

// Get implements RemoteStore.
func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// SetWithTTL implements RemoteStore.
func (b *BadgerStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.key(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete implements RemoteStore.
func (b *BadgerStore) Delete(_ context.Context, keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(b.key(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// KeysMatching implements RemoteStore. The literal part of pattern before
// the first wildcard is used as the iterator prefix.
func (b *BadgerStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	literal := pattern
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		literal = pattern[:i]
	}

	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = b.key(literal)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if item.IsDeletedOrExpired() {
				continue
			}
			k := string(item.Key()[len(b.prefix):])
			if ok, _ := path.Match(pattern, k); ok {
				keys = append(keys, k)
			}
		}
		return nil
	})
	return keys, err
}

// Flush drops every key under this store's prefix.
func (b *BadgerStore) Flush(_ context.Context) error {
	return b.db.DropPrefix(b.prefix)
}

// Close closes the database when this store opened it.
func (b *BadgerStore) Close() error {
	if b.owned {
		return b.db.Close()
	}
	return nil
}

var _ RemoteStore = (*BadgerStore)(nil)
