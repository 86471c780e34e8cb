package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a torn down store.
var ErrClosed = errors.New("cache store is closed")

type Status int

const (
	StatusAbsent Status = iota
	StatusFetching
	StatusPresent
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusPresent:
		return "present"
	default:
		return "absent"
	}
}

// Entry is a copy of one cached value and its bookkeeping.
//
// Version is the version of the last authoritative fetch that landed (0 when
// the value never came from the server). Seq is bumped by every write,
// optimistic or not. Both come from store-wide monotonic counters.
type Entry struct {
	Key        Key             `json:"key"`
	Status     Status          `json:"status"`
	Value      json.RawMessage `json:"value,omitempty"`
	Version    uint64          `json:"version"`
	Seq        uint64          `json:"-"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	Stale      bool            `json:"stale"`
	Optimistic bool            `json:"-"`
}

// HasValue reports whether the entry holds a value, which is the case for
// present entries and for fetching entries that kept their previous value.
func (e Entry) HasValue() bool {
	return e.Value != nil
}

// SameState compares the observable state of two entries: status, value bytes
// and fetch version.
func (e Entry) SameState(o Entry) bool {
	return e.Status == o.Status && e.Version == o.Version && bytes.Equal(e.Value, o.Value)
}

// FetchTicket is handed out when a fetch begins and presented when it lands.
type FetchTicket struct {
	Key Key
	Seq uint64
}

type record struct {
	Entry
	// seq of the last optimistic write, used to discard reads that were in
	// flight before it.
	optSeq uint64
	// outstanding fetches; status returns to present/absent when it drops to 0.
	fetching int
}

// Store is the process-wide keyed query cache. It is created explicitly for a
// session and torn down with Close at logout.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*record
	version uint64
	seq     uint64
	dirty   bool
	closed  bool
	locks   *KeyLocks
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		entries: map[Key]*record{},
		locks:   NewKeyLocks(),
		now:     time.Now,
	}
}

// Locks exposes the per-key cooperative locks writers must hold.
func (s *Store) Locks() *KeyLocks {
	return s.locks
}

// Get returns a copy of the entry at key; missing keys yield an absent entry.
func (s *Store) Get(key Key) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[key]
	if !ok {
		return Entry{Key: key, Status: StatusAbsent}
	}
	return cloneEntry(r.Entry)
}

// Keys lists every key holding a value, sorted.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for k, r := range s.entries {
		if r.HasValue() {
			keys = append(keys, k)
		}
	}
	return SortKeys(keys)
}

// Match lists the keys with a value whose resource is one of resources.
func (s *Store) Match(resources ...string) []Key {
	var out []Key
	for _, k := range s.Keys() {
		for _, res := range resources {
			if k.Resource == res {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// BeginFetch marks key as fetching, keeping any previous value.
func (s *Store) BeginFetch(key Key) (FetchTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return FetchTicket{}, ErrClosed
	}
	r := s.record(key)
	r.fetching++
	r.Status = StatusFetching
	return FetchTicket{Key: key, Seq: r.Seq}, nil
}

// Land stores an authoritative fetch result. It returns false, leaving the
// entry alone, when an optimistic write happened after the fetch began: the
// read predates the mutation and would clobber its prediction.
func (s *Store) Land(t FetchTicket, value []byte) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Entry{}, false, ErrClosed
	}
	r := s.record(t.Key)
	s.endFetch(r)
	if r.optSeq > t.Seq {
		return cloneEntry(r.Entry), false, nil
	}

	s.version++
	s.seq++
	r.Value = bytes.Clone(value)
	r.Version = s.version
	r.Seq = s.seq
	r.Status = StatusPresent
	r.FetchedAt = s.now()
	r.Stale = false
	r.Optimistic = false
	s.dirty = true
	return cloneEntry(r.Entry), true, nil
}

// AbortFetch ends a fetch without a result.
func (s *Store) AbortFetch(t FetchTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.entries[t.Key]; ok {
		s.endFetch(r)
		if !r.HasValue() && r.fetching == 0 {
			delete(s.entries, t.Key)
		}
	}
}

// WriteOptimistic replaces the value at key with a client prediction and
// returns the write sequence. A nil value drops the key's value. The fetch
// version is left untouched.
func (s *Store) WriteOptimistic(key Key, value []byte) (uint64, error) {
	seqs, err := s.WriteOptimisticAll(map[Key][]byte{key: value})
	if err != nil {
		return 0, err
	}
	return seqs[key], nil
}

// WriteOptimisticAll applies several predictions in one critical section, so
// readers never observe some keys written and others not.
func (s *Store) WriteOptimisticAll(values map[Key][]byte) (map[Key]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	seqs := make(map[Key]uint64, len(values))
	for _, key := range SortKeys(keysOf(values)) {
		r := s.record(key)
		s.seq++
		r.Value = bytes.Clone(values[key])
		r.Seq = s.seq
		r.optSeq = s.seq
		r.Optimistic = true
		switch {
		case r.fetching > 0:
			r.Status = StatusFetching
		case r.HasValue():
			r.Status = StatusPresent
		default:
			r.Status = StatusAbsent
		}
		seqs[key] = s.seq
	}
	s.dirty = true
	return seqs, nil
}

// CompareAndRestore rolls keys back to their snapshots in one critical
// section. A key is restored only if no authoritative fetch landed since its
// snapshot (same Version) and nobody wrote it after the write recorded in
// written (same Seq). Other keys are reported as skipped and left alone.
func (s *Store) CompareAndRestore(snaps []Entry, written map[Key]uint64) (restored, skipped []Key, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	for _, snap := range snaps {
		seq, wrote := written[snap.Key]
		if !wrote {
			continue
		}
		cur := s.record(snap.Key)
		if cur.Version != snap.Version || cur.Seq != seq {
			skipped = append(skipped, snap.Key)
			continue
		}
		s.restoreLocked(snap)
		restored = append(restored, snap.Key)
	}
	s.dirty = true
	return restored, skipped, nil
}

// Restore puts a snapshot back verbatim: value bytes, fetch version, fetch
// time and staleness. An absent snapshot removes the key.
func (s *Store) Restore(snap Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.restoreLocked(snap)
	s.dirty = true
	return nil
}

func (s *Store) restoreLocked(snap Entry) {
	r := s.record(snap.Key)
	fetching, optSeq := r.fetching, r.optSeq
	s.seq++
	r.Entry = cloneEntry(snap)
	r.Seq = s.seq
	r.fetching = fetching
	r.optSeq = optSeq
	switch {
	case fetching > 0:
		r.Status = StatusFetching
	case r.HasValue():
		r.Status = StatusPresent
	default:
		delete(s.entries, snap.Key)
	}
}

// MarkStale flags a key for refetch. It reports whether the key holds a value.
func (s *Store) MarkStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.entries[key]
	if !ok || !r.HasValue() {
		return false
	}
	r.Stale = true
	return true
}

// Remove drops a key entirely.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	s.dirty = true
}

// IsDirty returns true if entries changed since the last ClearDirty.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Snapshot copies every entry holding a value, for persistence.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, k := range s.sortedKeysLocked() {
		r := s.entries[k]
		if !r.HasValue() {
			continue
		}
		e := cloneEntry(r.Entry)
		e.Status = StatusPresent
		out = append(out, e)
	}
	return out
}

// Hydrate seeds an empty store from a persisted snapshot. Every entry comes
// back stale so the first access refetches it.
func (s *Store) Hydrate(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, e := range entries {
		if e.Key.IsZero() || e.Value == nil {
			continue
		}
		if _, exists := s.entries[e.Key]; exists {
			continue
		}
		if e.Version > s.version {
			s.version = e.Version
		}
		s.seq++
		c := cloneEntry(e)
		c.Status = StatusPresent
		c.Stale = true
		c.Optimistic = false
		c.Seq = s.seq
		s.entries[e.Key] = &record{Entry: c}
	}
	return nil
}

// Close tears the store down; it is called at logout.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[Key]*record{}
	s.closed = true
	s.dirty = false
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) record(key Key) *record {
	r, ok := s.entries[key]
	if !ok {
		r = &record{Entry: Entry{Key: key, Status: StatusAbsent}}
		s.entries[key] = r
	}
	return r
}

func (s *Store) endFetch(r *record) {
	if r.fetching > 0 {
		r.fetching--
	}
	if r.fetching == 0 && r.Status == StatusFetching {
		if r.HasValue() {
			r.Status = StatusPresent
		} else {
			r.Status = StatusAbsent
		}
	}
}

func (s *Store) sortedKeysLocked() []Key {
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return SortKeys(keys)
}

func keysOf(m map[Key][]byte) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func cloneEntry(e Entry) Entry {
	c := e
	if e.Value != nil {
		c.Value = bytes.Clone(e.Value)
	}
	return c
}
