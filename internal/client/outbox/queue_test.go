package outbox

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) kv.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return kv.NewSQLiteRepository(db)
}

func mustAction(t *testing.T, kind models.ActionKind, payload any) models.PendingAction {
	t.Helper()
	a, err := models.WrapAction(kind, payload, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return a
}

func TestEnqueue_AppendsInFIFOOrder(t *testing.T) {
	q := NewQueue(setupRepo(t))
	ctx := context.Background()

	a1 := mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: "p1", UserID: "u1"})
	a2 := mustAction(t, models.ActionCreateComment, models.CreateCommentPayload{PostID: "p1", Content: "hi"})

	require.NoError(t, q.Enqueue(ctx, a1))
	require.NoError(t, q.Enqueue(ctx, a2))

	got, err := q.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a1.ID, got[0].ID)
	assert.Equal(t, a2.ID, got[1].ID)
}

func TestLoadAll_EmptyQueue(t *testing.T) {
	q := NewQueue(setupRepo(t))

	got, err := q.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadAll_SurvivesReopen(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	a := mustAction(t, models.ActionSendMessage, models.SendMessagePayload{ChatID: "c1", Content: "안녕"})
	require.NoError(t, NewQueue(repo).Enqueue(ctx, a))

	// a fresh Queue over the same storage sees the persisted action
	got, err := NewQueue(repo).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, models.ActionSendMessage, got[0].Kind)
}

func TestReplaceAll_OverwritesWholesale(t *testing.T) {
	q := NewQueue(setupRepo(t))
	ctx := context.Background()

	a1 := mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: "p1"})
	a2 := mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: "p2"})
	require.NoError(t, q.Enqueue(ctx, a1))
	require.NoError(t, q.Enqueue(ctx, a2))

	a2.RetryCount = 1
	a2.LastError = "timeout"
	require.NoError(t, q.ReplaceAll(ctx, []models.PendingAction{a2}))

	got, err := q.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a2.ID, got[0].ID)
	assert.Equal(t, 1, got[0].RetryCount)
	assert.Equal(t, "timeout", got[0].LastError)
}

func TestCount(t *testing.T) {
	q := NewQueue(setupRepo(t))
	ctx := context.Background()

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, q.Enqueue(ctx, mustAction(t, models.ActionDeletePost, models.DeletePostPayload{PostID: "p1"})))

	n, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOnCountChange_NotifiesAndUnsubscribes(t *testing.T) {
	q := NewQueue(setupRepo(t))
	ctx := context.Background()

	var counts []int
	unsubscribe := q.OnCountChange(func(n int) { counts = append(counts, n) })

	require.NoError(t, q.Enqueue(ctx, mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: "p1"})))
	require.NoError(t, q.ReplaceAll(ctx, nil))

	unsubscribe()
	require.NoError(t, q.Enqueue(ctx, mustAction(t, models.ActionToggleLike, models.ToggleLikePayload{PostID: "p2"})))

	assert.Equal(t, []int{1, 0}, counts)
}
