// Package cache persists last-known-good snapshots of list data so the app
// can render something meaningful while offline. Reads populate it
// opportunistically; it is consulted as fallback when live reads are
// unavailable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/common"
	"github.com/sangwoolab/townsync/internal/timex"
)

// Key names one cached snapshot. The set is fixed.
type Key string

const (
	KeyBusinesses    Key = "businesses"
	KeyPosts         Key = "posts"
	KeyExchangeRates Key = "exchangeRates"
	KeyUserProfile   Key = "userProfile"
	KeyBookmarks     Key = "bookmarks"
	KeyNotifications Key = "notifications"
	KeyComments      Key = "comments"
	KeyMessages      Key = "messages"
)

var validKeys = map[Key]struct{}{
	KeyBusinesses: {}, KeyPosts: {}, KeyExchangeRates: {}, KeyUserProfile: {},
	KeyBookmarks: {}, KeyNotifications: {}, KeyComments: {}, KeyMessages: {},
}

// Default policy values. Callers pass explicit ages to IsValid/CleanupExpired;
// these are the policy layer's defaults.
const (
	DefaultMaxAge       = time.Hour
	DefaultForcedExpiry = 24 * time.Hour
	DefaultSizeLimit    = 100 << 20 // 100MB
)

const keyPrefix = "cache:"

// entry is the stored envelope: payload plus its write time.
type entry struct {
	Key       Key             `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is the read-through snapshot cache, at most one entry per key.
type Store struct {
	repo  kv.Repository
	clock timex.Clock
}

func NewStore(repo kv.Repository, clock timex.Clock) *Store {
	return &Store{repo: repo, clock: clock}
}

// Save stores the payload under key, stamping it with the current time.
func (s *Store) Save(ctx context.Context, key Key, payload []byte) error {
	if _, ok := validKeys[key]; !ok {
		return fmt.Errorf("%w: unknown cache key %s", common.ErrorValidation, key)
	}

	blob, err := json.Marshal(entry{Key: key, Payload: payload, Timestamp: s.clock.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.repo.Set(ctx, keyPrefix+string(key), blob); err != nil {
		return fmt.Errorf("failed to save cache[%s]: %w", key, err)
	}
	return nil
}

// Load returns the stored payload, or nil when the entry is missing or
// unreadable. It never fails: corruption is a cache miss, nothing more.
// Staleness is a separate question, ask IsValid.
func (s *Store) Load(ctx context.Context, key Key) []byte {
	e := s.loadEntry(ctx, key)
	if e == nil {
		return nil
	}
	return e.Payload
}

func (s *Store) loadEntry(ctx context.Context, key Key) *entry {
	blob, err := s.repo.Get(ctx, keyPrefix+string(key))
	if err != nil || blob == nil {
		return nil
	}
	var e entry
	if err := json.Unmarshal(blob, &e); err != nil {
		return nil
	}
	return &e
}

func (s *Store) Remove(ctx context.Context, key Key) error {
	if err := s.repo.Delete(ctx, keyPrefix+string(key)); err != nil {
		return fmt.Errorf("failed to remove cache[%s]: %w", key, err)
	}
	return nil
}

// IsValid reports whether an entry exists and is younger than maxAge.
func (s *Store) IsValid(ctx context.Context, key Key, maxAge time.Duration) bool {
	e := s.loadEntry(ctx, key)
	if e == nil {
		return false
	}
	return s.clock.Now().Sub(e.Timestamp) < maxAge
}

// SizeBytes returns the total payload size of all entries.
func (s *Store) SizeBytes(ctx context.Context) (int64, error) {
	entries, err := s.listEntries(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		total += int64(len(e.Payload))
	}
	return total, nil
}

// CleanupExpired removes every entry at least maxAge old.
func (s *Store) CleanupExpired(ctx context.Context, maxAge time.Duration) error {
	entries, err := s.listEntries(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, e := range entries {
		if now.Sub(e.Timestamp) >= maxAge {
			if err := s.Remove(ctx, e.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanupToTargetSize evicts oldest entries first until the total payload
// size is at or under targetBytes.
func (s *Store) CleanupToTargetSize(ctx context.Context, targetBytes int64) error {
	entries, err := s.listEntries(ctx)
	if err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		total += int64(len(e.Payload))
	}
	if total <= targetBytes {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	for _, e := range entries {
		if total <= targetBytes {
			break
		}
		if err := s.Remove(ctx, e.Key); err != nil {
			return err
		}
		total -= int64(len(e.Payload))
	}
	return nil
}

func (s *Store) listEntries(ctx context.Context) ([]entry, error) {
	rows, err := s.repo.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	entries := make([]entry, 0, len(rows))
	for _, blob := range rows {
		var e entry
		if err := json.Unmarshal(blob, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
