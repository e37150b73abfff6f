package license

import (
	"strings"
	"sync"
	"time"
)

// Store is the in-memory collection of license records. All access goes
// through a single mutex that is held only for one lookup+mutate sequence.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
}

// NewStore creates a store seeded with records. A seed whose key is already
// present is skipped, keeping the earlier one.
func NewStore(seed ...Record) *Store {
	s := &Store{
		records: make(map[string]*Record, len(seed)),
	}
	for _, rec := range seed {
		_ = s.Insert(rec)
	}
	return s
}

// Insert adds rec. The first record inserted for a key wins; later inserts
// for the same key return ErrDuplicateKey and leave the store unchanged.
func (s *Store) Insert(rec Record) error {
	if strings.TrimSpace(rec.Key) == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Key]; exists {
		return ErrDuplicateKey
	}
	stored := rec
	s.records[rec.Key] = &stored
	s.order = append(s.order, rec.Key)
	return nil
}

// Get returns a copy of the record stored under key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Revoke marks the record inactive. It reports whether a record existed;
// revoking an unknown key changes nothing.
func (s *Store) Revoke(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return false
	}
	rec.IsActive = false
	return true
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns copies of all records in insertion order.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.records[key])
	}
	return out
}

// bindPolicy controls how bind treats missing and expired records.
type bindPolicy struct {
	// createValidity, when positive, creates a record already bound to the
	// caller's hardware when none exists.
	createValidity time.Duration
	// evictExpired removes expired records from the store.
	evictExpired bool
}

// bind runs the whole validation sequence for key under the store lock.
func (s *Store) bind(key, hardwareID string, now time.Time, policy bindPolicy) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		if policy.createValidity <= 0 {
			return OutcomeUnknownKey
		}
		created := NewRecord(key, hardwareID, now, policy.createValidity)
		s.records[key] = &created
		s.order = append(s.order, key)
		return OutcomeCreated
	}

	outcome := checkBinding(rec, hardwareID, now)
	if outcome == OutcomeExpired && policy.evictExpired {
		s.deleteLocked(key)
	}
	return outcome
}

func (s *Store) deleteLocked(key string) {
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
