// Package session keeps per-room conversational state in memory.
//
// Each room owns one entry guarded by its own mutex, so operations on different rooms
// never contend and operations on the same room are applied one at a time.
package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a room has no session.
var ErrNotFound = errors.New("session: not found")

type entry[T any] struct {
	mu   sync.Mutex
	val  *T
	gone bool
}

// Store maps room ids to sessions of type T.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

// NewStore returns an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[string]*entry[T])}
}

// Create installs the session built by init unless the room already has one.
// It reports whether a new session was created.
func (s *Store[T]) Create(roomID string, init func() *T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[roomID]; ok {
		return false
	}
	s.entries[roomID] = &entry[T]{val: init()}
	return true
}

// Update runs fn on the room's session while holding the room lock.
func (s *Store[T]) Update(roomID string, fn func(*T) error) error {
	e := s.lookup(roomID)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// Lost a race with Delete: the entry was detached after lookup.
	if e.gone {
		return ErrNotFound
	}
	return fn(e.val)
}

// Upsert runs fn on the room's session, creating it with init first when absent.
// created reports whether init ran.
func (s *Store[T]) Upsert(roomID string, init func() *T, fn func(val *T, created bool) error) error {
	for {
		s.mu.Lock()
		e, ok := s.entries[roomID]
		if !ok {
			e = &entry[T]{val: init()}
			s.entries[roomID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.gone {
			e.mu.Unlock()
			continue
		}
		err := fn(e.val, !ok)
		e.mu.Unlock()
		return err
	}
}

// Delete removes the room's session and reports whether one existed.
func (s *Store[T]) Delete(roomID string) bool {
	s.mu.Lock()
	e, ok := s.entries[roomID]
	if ok {
		delete(s.entries, roomID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.gone = true
	e.mu.Unlock()
	return true
}

// DeleteIf removes the session when pred holds under the room lock. The decision and the
// removal are atomic with respect to Update on the same room.
func (s *Store[T]) DeleteIf(roomID string, pred func(*T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[roomID]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !pred(e.val) {
		return false
	}
	e.gone = true
	delete(s.entries, roomID)
	return true
}

// Sweep removes every session matching pred and returns how many were removed.
func (s *Store[T]) Sweep(pred func(*T) bool) int {
	removed := 0
	for _, roomID := range s.Rooms() {
		if s.DeleteIf(roomID, pred) {
			removed++
		}
	}
	return removed
}

// Rooms returns the ids of rooms that currently have a session.
func (s *Store[T]) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[T]) lookup(roomID string) *entry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[roomID]
}
