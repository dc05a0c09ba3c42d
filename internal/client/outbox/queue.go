// Package outbox holds the durable queue of pending mutations and the
// dead-letter log of actions dropped after exhausting their retries.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
)

const queueKey = "outbox:queue"

// RetryCeiling is the maximum number of failed execution attempts before an
// action is permanently dropped.
const RetryCeiling = 3

// Queue is the outbox: a FIFO list of pending actions persisted as one JSON
// blob so every write is all-or-nothing. The queue is expected to stay small
// (tens of entries), so whole-blob rewrites are fine.
//
// Access is assumed single-threaded apart from count notifications; the
// internal mutex only protects the subscriber registry.
type Queue struct {
	repo kv.Repository

	mu      sync.Mutex
	subs    map[int]func(count int)
	nextSub int
}

func NewQueue(repo kv.Repository) *Queue {
	return &Queue{repo: repo, subs: make(map[int]func(int))}
}

// Enqueue appends the action to durable storage and returns immediately; it
// never attempts execution itself.
func (q *Queue) Enqueue(ctx context.Context, action models.PendingAction) error {
	actions, err := q.LoadAll(ctx)
	if err != nil {
		return err
	}
	return q.ReplaceAll(ctx, append(actions, action))
}

// LoadAll reads the full queue in FIFO order. An absent blob is an empty
// queue.
func (q *Queue) LoadAll(ctx context.Context) ([]models.PendingAction, error) {
	blob, err := q.repo.Get(ctx, queueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}
	if blob == nil {
		return nil, nil
	}

	var actions []models.PendingAction
	if err := json.Unmarshal(blob, &actions); err != nil {
		return nil, fmt.Errorf("failed to decode outbox: %w", err)
	}
	return actions, nil
}

// ReplaceAll atomically overwrites the queue with the given list. Used after
// a sync pass to persist the surviving subset.
func (q *Queue) ReplaceAll(ctx context.Context, actions []models.PendingAction) error {
	if actions == nil {
		actions = []models.PendingAction{}
	}
	blob, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode outbox: %w", err)
	}
	if err := q.repo.Set(ctx, queueKey, blob); err != nil {
		return fmt.Errorf("failed to persist outbox: %w", err)
	}

	q.notify(len(actions))
	return nil
}

// Count returns the number of pending actions, for UI badges.
func (q *Queue) Count(ctx context.Context) (int, error) {
	actions, err := q.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

// OnCountChange registers a callback invoked after every durable queue write
// with the new pending count. The returned function unsubscribes.
func (q *Queue) OnCountChange(fn func(count int)) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subs, id)
	}
}

func (q *Queue) notify(count int) {
	q.mu.Lock()
	subs := make([]func(int), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(count)
	}
}
