// Package cache provides the per-service TTL response cache, the snapshot
// machinery backing optimistic updates, and in-flight request
// de-duplication. Entries live in memory and are rebuilt per process; an
// optional Redis backend can be layered behind the in-memory store.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Key identifies a cached response by operation name and normalized
// arguments. Using a structured key instead of ad-hoc string concatenation
// keeps keys collision-free across operations.
type Key struct {
	Op   string
	Args []string
}

// K builds a Key.
func K(op string, args ...string) Key {
	return Key{Op: op, Args: args}
}

// String returns the canonical form "op/arg1/arg2".
func (k Key) String() string {
	if len(k.Args) == 0 {
		return k.Op
	}
	return k.Op + "/" + strings.Join(k.Args, "/")
}

type entry struct {
	data any
	ts   time.Time
}

// Store is a thread-safe in-memory TTL cache. Expiry is lazy: an entry
// older than the TTL supplied to Get is evicted on that read. TTLs are
// per-operation, so they travel with the read rather than the store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Tests use this to sweep
// timestamps across the TTL boundary deterministically.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get returns the cached value for key if it is younger than ttl.
// An expired entry is evicted on this read and (nil, false) is returned.
func (s *Store) Get(key Key, ttl time.Duration) (any, bool) {
	ks := key.String()

	s.mu.RLock()
	e, ok := s.entries[ks]
	now := s.now()
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if now.Sub(e.ts) >= ttl {
		s.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if cur, still := s.entries[ks]; still && s.now().Sub(cur.ts) >= ttl {
			delete(s.entries, ks)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set unconditionally overwrites the entry for key, stamping it now.
func (s *Store) Set(key Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = entry{data: data, ts: s.now()}
}

// Delete removes the entry for key.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len returns the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// KeysByOp returns the keys of all entries whose operation matches op.
func (s *Store) KeysByOp(op string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Key
	for ks := range s.entries {
		head, rest, cut := strings.Cut(ks, "/")
		if head != op {
			continue
		}
		k := Key{Op: op}
		if cut {
			k.Args = strings.Split(rest, "/")
		}
		out = append(out, k)
	}
	return out
}

// snapEntry records one key's pre-mutation state, including absence.
type snapEntry struct {
	key     Key
	data    any
	ts      time.Time
	present bool
}

// Snapshot is the pre-mutation state of a set of keys, taken before an
// optimistic update and held until the underlying write settles.
type Snapshot []snapEntry

// Snapshot captures the current state of the given keys. Values are stored
// as-is; callers applying optimistic patches must write cloned values so
// the snapshot stays exact.
func (s *Store) Snapshot(keys ...Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, 0, len(keys))
	for _, k := range keys {
		e, ok := s.entries[k.String()]
		snap = append(snap, snapEntry{key: k, data: e.data, ts: e.ts, present: ok})
	}
	return snap
}

// Restore puts every snapshotted key back to its captured state, original
// timestamps included. Keys absent at snapshot time are deleted.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, se := range snap {
		if se.present {
			s.entries[se.key.String()] = entry{data: se.data, ts: se.ts}
		} else {
			delete(s.entries, se.key.String())
		}
	}
}
