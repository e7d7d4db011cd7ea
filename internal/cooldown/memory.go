// Package cooldown suppresses repeated safety banners for the same user and
// category within a fixed window.
package cooldown

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the suppression window applied when none is configured.
const DefaultWindow = 90 * time.Second

// MemoryStore keeps cooldown records in process memory. Check-and-write runs
// under one mutex, so concurrent callers see at most one allowed trigger per
// window for a key.
type MemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	records map[string]time.Time
}

// NewMemoryStore creates an in-memory store with the given window.
func NewMemoryStore(window time.Duration) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window:  window,
		records: make(map[string]time.Time),
	}
}

// Allow reports whether a banner may be shown for (userID, category) at now and
// records the trigger when it may. An empty userID is always allowed and never recorded.
func (s *MemoryStore) Allow(_ context.Context, userID, category string, now time.Time) (bool, error) {
	if userID == "" {
		return true, nil
	}
	key := recordKey(userID, category)

	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.records[key]
	if ok && now.Sub(last) < s.window {
		return false, nil
	}
	s.records[key] = now
	return true, nil
}

// Reset removes every record for userID.
func (s *MemoryStore) Reset(_ context.Context, userID string) (int, error) {
	prefix := recordKey(userID, "")
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep drops records whose window has elapsed at now. An expired record and a
// missing one allow the next trigger alike, so eviction never changes outcomes.
func (s *MemoryStore) Sweep(now time.Time) int {
	cutoff := now.Add(-s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, last := range s.records {
		if !last.After(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts expired records every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}

// recordKey joins userID and category with a separator that cannot appear in
// category names.
func recordKey(userID, category string) string {
	return userID + "\x00" + category
}
