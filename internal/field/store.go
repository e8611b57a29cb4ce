package field

import (
	"sync"
	"time"

	"github.com/tamzrod/bms-poller/internal/codec"
)

// Entry is the current value of one field.
type Entry struct {
	Value   codec.Value
	Updated time.Time
}

// Store is a sparse field→value map. The poller writes it; the aggregation
// layer reads it concurrently and asks Has instead of relying on zero values.
type Store struct {
	mu      sync.RWMutex
	entries map[ID]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[ID]Entry)}
}

// Set replaces the entry for id.
func (s *Store) Set(id ID, v codec.Value, at time.Time) {
	s.mu.Lock()
	s.entries[id] = Entry{Value: v, Updated: at}
	s.mu.Unlock()
}

// Get returns the entry for id, if present.
func (s *Store) Get(id ID) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	return e, ok
}

// Has reports whether id has ever been set since the last Reset.
func (s *Store) Has(id ID) bool {
	_, ok := s.Get(id)
	return ok
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = make(map[ID]Entry)
	s.mu.Unlock()
}

// Len returns the number of present fields.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Attributes renders the store keyed by aggregation attribute name.
func (s *Store) Attributes() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.entries))
	for id, e := range s.entries {
		out[id.Attribute()] = e.Value.Any()
	}
	return out
}
