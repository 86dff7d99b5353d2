package coordination

import (
	"sort"
	"sync"

	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

// Store keeps coordination records in memory. Records are copied on the way in
// and on the way out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Coordination
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{records: make(map[string]*Coordination)}
}

// Put inserts or replaces a record
func (s *Store) Put(c *Coordination) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c.ID] = c.Clone()
}

// Get returns a copy of the record with id
func (s *Store) Get(id string) (*Coordination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.records[id]
	if !ok {
		return nil, errors.CoordinationNotFoundError(id)
	}
	return c.Clone(), nil
}

// List returns every record ordered by start time, then id
func (s *Store) List() []*Coordination {
	return s.filter(func(*Coordination) bool { return true })
}

// ListByProcess returns the records for one repair process, oldest first
func (s *Store) ListByProcess(processID string) []*Coordination {
	return s.filter(func(c *Coordination) bool { return c.ProcessID == processID })
}

func (s *Store) filter(keep func(*Coordination) bool) []*Coordination {
	s.mu.RLock()
	out := make([]*Coordination, 0, len(s.records))
	for _, c := range s.records {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Archive removes a record and returns it
func (s *Store) Archive(id string) (*Coordination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.records[id]
	if !ok {
		return nil, errors.CoordinationNotFoundError(id)
	}
	delete(s.records, id)
	return c, nil
}

// Reset drops every record
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Coordination)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Counts tallies records per status
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[Status]int{
		StatusInProgress: 0,
		StatusCompleted:  0,
		StatusFailed:     0,
	}
	for _, c := range s.records {
		counts[c.Status]++
	}
	return counts
}
