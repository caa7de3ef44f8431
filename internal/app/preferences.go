package app

import (
	"sync"
	"time"

	"tourbook/internal/domain"
)

// ListingPreferences remembers one visitor's page size and sort order.
// Each value starts unset; the first read stores and returns the supplied
// default and later reads ignore their default. Set overwrites both.
type ListingPreferences struct {
	mu           sync.Mutex
	pageSize     int
	pageSizeSet  bool
	sortOrder    domain.SortOrder
	sortOrderSet bool
}

// PageSize returns the stored page size, seeding it with def on first use.
func (p *ListingPreferences) PageSize(def int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pageSizeSet {
		p.pageSize, p.pageSizeSet = def, true
	}
	return p.pageSize
}

// SortOrder returns the stored sort order, seeding it with def on first use.
func (p *ListingPreferences) SortOrder(def domain.SortOrder) domain.SortOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sortOrderSet {
		p.sortOrder, p.sortOrderSet = def, true
	}
	return p.sortOrder
}

// Set overwrites both preferences.
func (p *ListingPreferences) Set(pageSize int, order domain.SortOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageSize, p.pageSizeSet = pageSize, true
	p.sortOrder, p.sortOrderSet = order, true
}

// PreferenceStore holds ListingPreferences per visitor key.
type PreferenceStore struct {
	mu      sync.Mutex
	entries map[string]*preferenceEntry
	now     func() time.Time
}

type preferenceEntry struct {
	prefs    *ListingPreferences
	lastUsed time.Time
}

// NewPreferenceStore returns an empty store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		entries: make(map[string]*preferenceEntry),
		now:     time.Now,
	}
}

// For returns the preferences of visitor key, creating an uninitialized
// holder on first sight.
func (s *PreferenceStore) For(key string) *ListingPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &preferenceEntry{prefs: &ListingPreferences{}}
		s.entries[key] = e
	}
	e.lastUsed = s.now()
	return e.prefs
}

// Evict drops holders not used for longer than idle and returns how many
// were removed.
func (s *PreferenceStore) Evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for k, e := range s.entries {
		if e.lastUsed.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked visitors.
func (s *PreferenceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
