// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package cache

import (
	"sync"
	"time"
)

// evictFraction is the share of a full namespace dropped per eviction pass.
const evictFraction = 0.2

// entry is a node of the access-ordered list.
type entry struct {
	key         string
	value       interface{}
	createdAt   time.Time
	ttl         time.Duration
	accessCount int64
	lastAccess  time.Time

	prev *entry
	next *entry
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// LocalStore is a bounded in-process store for one namespace. It uses a
// hashmap for lookups and a doubly-linked list for access order:
// head.next is the most recently accessed entry, tail.prev the least.
type LocalStore struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[string]*entry
	head  *entry
	tail  *entry

	now func() time.Time

	// onEvict receives the reason ("capacity" or "expired") and count.
	onEvict func(reason string, n int)
}

// NewLocalStore creates a store holding at most capacity entries with the
// given default TTL.
func NewLocalStore(capacity int, ttl time.Duration) *LocalStore {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &LocalStore{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
		now:      time.Now,
		onEvict:  func(string, int) {},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// Get returns the value for key and marks it most recently accessed.
// An expired entry is removed and reported as a miss.
func (s *LocalStore) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return nil, false
	}

	now := s.now()
	if e.expired(now) {
		s.removeEntry(e)
		s.onEvict("expired", 1)
		return nil, false
	}

	e.accessCount++
	e.lastAccess = now
	s.moveToFront(e)
	return e.value, true
}

// Set stores value under key with the default TTL.
func (s *LocalStore) Set(key string, value interface{}) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key. When the store is full, the least
// recently accessed 20% of entries (at least one) are evicted first.
func (s *LocalStore) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		e.value = value
		e.createdAt = now
		e.ttl = ttl
		e.lastAccess = now
		s.moveToFront(e)
		return
	}

	if len(s.items) >= s.capacity {
		s.evictOldest()
	}

	e := &entry{
		key:        key,
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
	}
	s.items[key] = e
	s.addToFront(e)
}

// evictOldest drops the least recently accessed fraction of entries.
// Caller must hold the lock.
func (s *LocalStore) evictOldest() {
	n := int(float64(len(s.items)) * evictFraction)
	if n < 1 {
		n = 1
	}
	removed := 0
	for ; removed < n && s.tail.prev != s.head; removed++ {
		s.removeEntry(s.tail.prev)
	}
	if removed > 0 {
		s.onEvict("capacity", removed)
	}
}

// Delete removes key if present.
func (s *LocalStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		s.removeEntry(e)
	}
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *LocalStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for e := s.head.next; e != s.tail; {
		next := e.next
		if e.expired(now) {
			s.removeEntry(e)
			removed++
		}
		e = next
	}
	if removed > 0 {
		s.onEvict("expired", removed)
	}
	return removed
}

// Clear removes all entries.
func (s *LocalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*entry, s.capacity)
	s.head.next = s.tail
	s.tail.prev = s.head
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Keys returns keys from most to least recently accessed.
func (s *LocalStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.items))
	for e := s.head.next; e != s.tail; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// AccessCount returns how many hits key has served.
func (s *LocalStore) AccessCount(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		return e.accessCount
	}
	return 0
}

func (s *LocalStore) addToFront(e *entry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *LocalStore) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (s *LocalStore) moveToFront(e *entry) {
	s.unlink(e)
	s.addToFront(e)
}

func (s *LocalStore) removeEntry(e *entry) {
	s.unlink(e)
	delete(s.items, e.key)
}
