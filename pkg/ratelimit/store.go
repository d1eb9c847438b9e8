// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"sync"
	"time"
)

// Entry is the consumption of one key within one fixed window.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has ended at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// UpdateFunc computes the next entry for a key from the current one. ok is
// false when no entry is stored.
type UpdateFunc func(cur Entry, ok bool) Entry

// Store holds quota entries. Implementations must run Update for one key
// atomically with respect to other calls on the same key; calls on different
// keys must not serialize on each other.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, e Entry)
	Update(key string, fn UpdateFunc) Entry
	// Range calls fn for every stored entry until fn returns false.
	Range(fn func(key string, e Entry) bool)
	// Sweep removes entries expired at now and returns how many were removed.
	Sweep(now time.Time) int
	Len() int
	Reset()
}

type slot struct {
	mu      sync.Mutex
	entry   Entry
	present bool
	// removed marks a slot unlinked from the map; writers must look it up again.
	removed bool
}

// MemoryStore is an in-process Store with one lock per key.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]*slot)}
}

func (s *MemoryStore) lookup(key string) *slot {
	s.mu.RLock()
	sl := s.slots[key]
	s.mu.RUnlock()
	return sl
}

func (s *MemoryStore) slotFor(key string) *slot {
	if sl := s.lookup(key); sl != nil {
		return sl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	return sl
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	sl := s.lookup(key)
	if sl == nil {
		return Entry{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.removed || !sl.present {
		return Entry{}, false
	}
	return sl.entry, true
}

func (s *MemoryStore) Put(key string, e Entry) {
	s.Update(key, func(Entry, bool) Entry { return e })
}

func (s *MemoryStore) Update(key string, fn UpdateFunc) Entry {
	for {
		sl := s.slotFor(key)
		sl.mu.Lock()
		if sl.removed {
			sl.mu.Unlock()
			continue
		}
		next := fn(sl.entry, sl.present)
		sl.entry, sl.present = next, true
		sl.mu.Unlock()
		return next
	}
}

func (s *MemoryStore) Range(fn func(key string, e Entry) bool) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.slots))
	slots := make([]*slot, 0, len(s.slots))
	for k, sl := range s.slots {
		keys = append(keys, k)
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	for i, sl := range slots {
		sl.mu.Lock()
		e, ok := sl.entry, sl.present && !sl.removed
		sl.mu.Unlock()
		if !ok {
			continue
		}
		if !fn(keys[i], e) {
			return
		}
	}
}

// Sweep collects candidates under the read lock and unlinks them one at a
// time, so concurrent Update calls only wait for a single deletion.
func (s *MemoryStore) Sweep(now time.Time) int {
	var candidates []string
	s.mu.RLock()
	for k, sl := range s.slots {
		sl.mu.Lock()
		if !sl.present || sl.entry.Expired(now) {
			candidates = append(candidates, k)
		}
		sl.mu.Unlock()
	}
	s.mu.RUnlock()

	removed := 0
	for _, k := range candidates {
		s.mu.Lock()
		sl, ok := s.slots[k]
		if ok {
			sl.mu.Lock()
			if !sl.present || sl.entry.Expired(now) {
				sl.removed = true
				delete(s.slots, k)
				removed++
			}
			sl.mu.Unlock()
		}
		s.mu.Unlock()
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		sl.mu.Lock()
		sl.removed = true
		sl.mu.Unlock()
	}
	s.slots = make(map[string]*slot)
}
