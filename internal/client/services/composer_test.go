package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/client/drafts"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/outbox"
	"github.com/sangwoolab/townsync/internal/client/syncer"
)

type composerFixture struct {
	api     *fakeAPI
	queue   *outbox.Queue
	monitor *connectivity.Monitor
	svc     *ComposerService
}

func setupComposer(t *testing.T) *composerFixture {
	t.Helper()

	repo := setupKV(t)
	clock := &fakeClock{now: time.Now()}
	logger := discardLogger()

	api := &fakeAPI{}
	queue := outbox.NewQueue(repo)
	dead := outbox.NewDeadLetterLog(repo, clock)
	monitor := connectivity.NewMonitor(api, logger)
	orch := syncer.NewOrchestrator(api, queue, dead, monitor, logger, outbox.RetryCeiling, 200*time.Millisecond)
	t.Cleanup(orch.Close)

	draftStore := drafts.NewStore(repo, clock)
	svc := NewComposerService(queue, draftStore, orch, monitor, clock, logger)

	return &composerFixture{api: api, queue: queue, monitor: monitor, svc: svc}
}

func TestComposer_OfflineWriteIsQueuedNotSent(t *testing.T) {
	f := setupComposer(t)
	ctx := context.Background()

	f.monitor.SetConnected(false)
	require.NoError(t, f.svc.CreatePost(ctx, models.CreatePostPayload{Title: "중고 냉장고 팝니다"}))

	n, err := f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.api.callNames())
}

func TestComposer_OnlineWriteTriggersSync(t *testing.T) {
	f := setupComposer(t)
	ctx := context.Background()

	require.NoError(t, f.svc.CreatePost(ctx, models.CreatePostPayload{Title: "a"}))

	require.Eventually(t, func() bool {
		n, err := f.svc.PendingCount(ctx)
		return err == nil && n == 0
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, f.api.callNames(), "CreatePost")
}

func TestComposer_DraftLifecycle(t *testing.T) {
	f := setupComposer(t)
	ctx := context.Background()

	d, err := f.svc.SaveDraft(ctx, models.Draft{
		Type:    models.DraftTypePost,
		Title:   "초안",
		Content: "아직 작성 중",
	})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	list, err := f.svc.ListDrafts(ctx, models.DraftTypePost)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteDraft(ctx, d.ID))
	list, err = f.svc.ListDrafts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestComposer_PromoteDraftQueuesAndRemoves(t *testing.T) {
	f := setupComposer(t)
	ctx := context.Background()
	f.monitor.SetConnected(false)

	d, err := f.svc.SaveDraft(ctx, models.Draft{
		Type:      models.DraftTypeMessage,
		Content:   "내일 뵙겠습니다",
		RelatedID: "chat-7",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.PromoteDraft(ctx, d.ID, "u1", "김철수"))

	n, err := f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	actions, err := f.queue.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionSendMessage, actions[0].Kind)

	payload, err := actions[0].Unwrap()
	require.NoError(t, err)
	msg, ok := payload.(*models.SendMessagePayload)
	require.True(t, ok)
	assert.Equal(t, "chat-7", msg.ChatID)
	assert.Equal(t, "u1", msg.SenderID)

	list, err := f.svc.ListDrafts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list, "promoted draft is removed")
}

func TestComposer_PromoteMissingDraftFails(t *testing.T) {
	f := setupComposer(t)

	err := f.svc.PromoteDraft(context.Background(), "no-such-id", "u1", "김철수")
	assert.Error(t, err)
}
