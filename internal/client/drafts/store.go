// Package drafts persists in-progress user compositions. Drafts are
// local-only until the UI explicitly promotes one into a queued action.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/timex"
)

const keyPrefix = "draft:"

// Store is a durable map of drafts keyed by id, one KV row per draft.
type Store struct {
	repo  kv.Repository
	clock timex.Clock
}

func NewStore(repo kv.Repository, clock timex.Clock) *Store {
	return &Store{repo: repo, clock: clock}
}

// Save upserts the draft by id. A new draft gets a fresh id (when empty) and
// CreatedAt; an update keeps CreatedAt and only bumps UpdatedAt.
func (s *Store) Save(ctx context.Context, d models.Draft) (models.Draft, error) {
	now := s.clock.Now()

	if d.ID == "" {
		d.ID = uuid.NewString()
		d.CreatedAt = now
	} else if existing, err := s.Get(ctx, d.ID); err == nil && existing != nil {
		d.CreatedAt = existing.CreatedAt
	} else if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	blob, err := json.Marshal(d)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.repo.Set(ctx, keyPrefix+d.ID, blob); err != nil {
		return models.Draft{}, fmt.Errorf("failed to save draft: %w", err)
	}
	return d, nil
}

// Get returns the draft with the given id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*models.Draft, error) {
	blob, err := s.repo.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if blob == nil {
		return nil, nil
	}

	var d models.Draft
	if err := json.Unmarshal(blob, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

// List returns drafts of the given type, most recently updated first. An
// empty type lists everything. Corrupt rows are skipped.
func (s *Store) List(ctx context.Context, typ models.DraftType) ([]models.Draft, error) {
	rows, err := s.repo.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	result := make([]models.Draft, 0, len(rows))
	for _, blob := range rows {
		var d models.Draft
		if err := json.Unmarshal(blob, &d); err != nil {
			continue
		}
		if typ != "" && d.Type != typ {
			continue
		}
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// Clear removes drafts of the given type, or every draft when typ is empty.
func (s *Store) Clear(ctx context.Context, typ models.DraftType) error {
	if typ == "" {
		return s.repo.Clear(ctx, keyPrefix)
	}

	list, err := s.List(ctx, typ)
	if err != nil {
		return err
	}
	for _, d := range list {
		if err := s.Delete(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}
