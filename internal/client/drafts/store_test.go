package drafts

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

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func setupStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(kv.NewSQLiteRepository(db), clock), clock
}

func TestSave_AssignsIDAndTimestamps(t *testing.T) {
	s, clock := setupStore(t)

	d, err := s.Save(context.Background(), models.Draft{
		Type:    models.DraftTypePost,
		Title:   "언덕 위 카페 후기",
		Content: "초안",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, clock.t, d.CreatedAt)
	assert.Equal(t, clock.t, d.UpdatedAt)
}

func TestSave_UpdateBumpsUpdatedAtOnly(t *testing.T) {
	s, clock := setupStore(t)
	ctx := context.Background()

	d, err := s.Save(ctx, models.Draft{Type: models.DraftTypePost, Content: "v1"})
	require.NoError(t, err)
	created := d.CreatedAt

	clock.t = clock.t.Add(10 * time.Minute)
	d.Content = "v2"
	d2, err := s.Save(ctx, d)
	require.NoError(t, err)

	assert.Equal(t, d.ID, d2.ID)
	assert.Equal(t, created, d2.CreatedAt)
	assert.Equal(t, clock.t, d2.UpdatedAt)

	// round-trip: list contains exactly one entry with the latest content
	list, err := s.List(ctx, models.DraftTypePost)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Content)
}

func TestList_FiltersByTypeAndSortsByRecency(t *testing.T) {
	s, clock := setupStore(t)
	ctx := context.Background()

	older, err := s.Save(ctx, models.Draft{Type: models.DraftTypePost, Content: "old"})
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Minute)
	newer, err := s.Save(ctx, models.Draft{Type: models.DraftTypePost, Content: "new"})
	require.NoError(t, err)

	_, err = s.Save(ctx, models.Draft{Type: models.DraftTypeComment, RelatedID: "p1", Content: "c"})
	require.NoError(t, err)

	posts, err := s.List(ctx, models.DraftTypePost)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	d, err := s.Save(ctx, models.Draft{Type: models.DraftTypeMessage, RelatedID: "chat1"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, d.ID))

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear_ByTypeAndAll(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, models.Draft{Type: models.DraftTypePost})
	require.NoError(t, err)
	_, err = s.Save(ctx, models.Draft{Type: models.DraftTypeComment})
	require.NoError(t, err)
	_, err = s.Save(ctx, models.Draft{Type: models.DraftTypeMessage})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, models.DraftTypeComment))
	remaining, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	require.NoError(t, s.Clear(ctx, ""))
	remaining, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
