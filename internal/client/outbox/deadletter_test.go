package outbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangwoolab/townsync/internal/client/models"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestDeadLetterLog_AppendAndList(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	l := NewDeadLetterLog(setupRepo(t), clock)
	ctx := context.Background()

	a := mustAction(t, models.ActionCreateComment, models.CreateCommentPayload{PostID: "p1", Content: "x"})
	a.RetryCount = RetryCeiling
	a.LastError = "validation error"

	require.NoError(t, l.Append(ctx, a))

	letters, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, a.ID, letters[0].Action.ID)
	assert.Equal(t, "validation error", letters[0].Action.LastError)
	assert.Equal(t, clock.t, letters[0].DroppedAt)
}

func TestDeadLetterLog_BoundedOldestFirstEviction(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	l := NewDeadLetterLog(setupRepo(t), clock)
	ctx := context.Background()

	var ids []string
	for i := 0; i < DeadLetterLimit+5; i++ {
		a := mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: fmt.Sprintf("p%d", i)})
		ids = append(ids, a.ID)
		require.NoError(t, l.Append(ctx, a))
	}

	letters, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, letters, DeadLetterLimit)

	// the 5 oldest entries fell off
	assert.Equal(t, ids[5], letters[0].Action.ID)
	assert.Equal(t, ids[len(ids)-1], letters[len(letters)-1].Action.ID)
}

func TestDeadLetterLog_Clear(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	l := NewDeadLetterLog(setupRepo(t), clock)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, mustAction(t, models.ActionDeletePost, models.DeletePostPayload{PostID: "p1"})))
	require.NoError(t, l.Clear(ctx))

	letters, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, letters)
}
