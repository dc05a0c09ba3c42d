package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/timex"
)

const deadLetterKey = "outbox:deadletter"

// DeadLetterLimit bounds the persisted log; oldest entries are evicted first.
const DeadLetterLimit = 50

// DeadLetter is a permanently dropped action together with when it was
// dropped. The action's LastError carries the final failure.
type DeadLetter struct {
	Action    models.PendingAction `json:"action"`
	DroppedAt time.Time            `json:"dropped_at"`
}

// DeadLetterLog persists actions discarded after exceeding the retry ceiling,
// so their error detail survives the sync pass that dropped them.
type DeadLetterLog struct {
	repo  kv.Repository
	clock timex.Clock
}

func NewDeadLetterLog(repo kv.Repository, clock timex.Clock) *DeadLetterLog {
	return &DeadLetterLog{repo: repo, clock: clock}
}

// Append records a dropped action, evicting the oldest entries beyond the
// limit.
func (l *DeadLetterLog) Append(ctx context.Context, action models.PendingAction) error {
	letters, err := l.List(ctx)
	if err != nil {
		return err
	}

	letters = append(letters, DeadLetter{Action: action, DroppedAt: l.clock.Now()})
	if len(letters) > DeadLetterLimit {
		letters = letters[len(letters)-DeadLetterLimit:]
	}

	blob, err := json.Marshal(letters)
	if err != nil {
		return fmt.Errorf("failed to encode dead letters: %w", err)
	}
	if err := l.repo.Set(ctx, deadLetterKey, blob); err != nil {
		return fmt.Errorf("failed to persist dead letters: %w", err)
	}
	return nil
}

// List returns the log, oldest first.
func (l *DeadLetterLog) List(ctx context.Context) ([]DeadLetter, error) {
	blob, err := l.repo.Get(ctx, deadLetterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load dead letters: %w", err)
	}
	if blob == nil {
		return nil, nil
	}

	var letters []DeadLetter
	if err := json.Unmarshal(blob, &letters); err != nil {
		return nil, fmt.Errorf("failed to decode dead letters: %w", err)
	}
	return letters, nil
}

func (l *DeadLetterLog) Clear(ctx context.Context) error {
	return l.repo.Delete(ctx, deadLetterKey)
}
