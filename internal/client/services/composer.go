package services

import (
	"context"
	"fmt"

	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/client/drafts"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/outbox"
	"github.com/sangwoolab/townsync/internal/client/syncer"
	"github.com/sangwoolab/townsync/internal/common"
	"github.com/sangwoolab/townsync/internal/logging"
	"github.com/sangwoolab/townsync/internal/timex"
)

// ComposerService accepts user writes. Every write is queued first so it
// survives a crash or an offline window; when the network is up a sync pass
// is kicked off right away so the user sees the effect quickly.
type ComposerService struct {
	queue   *outbox.Queue
	drafts  *drafts.Store
	syncer  *syncer.Orchestrator
	monitor *connectivity.Monitor
	clock   timex.Clock
	logger  logging.Logger
}

func NewComposerService(
	queue *outbox.Queue,
	draftStore *drafts.Store,
	orch *syncer.Orchestrator,
	monitor *connectivity.Monitor,
	clock timex.Clock,
	logger logging.Logger,
) *ComposerService {
	return &ComposerService{
		queue:   queue,
		drafts:  draftStore,
		syncer:  orch,
		monitor: monitor,
		clock:   clock,
		logger:  logger,
	}
}

// submit queues the action and opportunistically starts a sync pass.
func (s *ComposerService) submit(ctx context.Context, kind models.ActionKind, payload any) error {
	action, err := models.WrapAction(kind, payload, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to wrap action: %w", err)
	}
	if err := s.queue.Enqueue(ctx, action); err != nil {
		return fmt.Errorf("failed to enqueue action: %w", err)
	}

	if s.monitor.IsConnected() {
		s.syncer.TriggerSync(ctx)
	}
	return nil
}

func (s *ComposerService) CreatePost(ctx context.Context, p models.CreatePostPayload) error {
	return s.submit(ctx, models.ActionCreatePost, p)
}

func (s *ComposerService) UpdatePost(ctx context.Context, p models.UpdatePostPayload) error {
	return s.submit(ctx, models.ActionUpdatePost, p)
}

func (s *ComposerService) DeletePost(ctx context.Context, p models.DeletePostPayload) error {
	return s.submit(ctx, models.ActionDeletePost, p)
}

func (s *ComposerService) CreateComment(ctx context.Context, p models.CreateCommentPayload) error {
	return s.submit(ctx, models.ActionCreateComment, p)
}

func (s *ComposerService) DeleteComment(ctx context.Context, p models.DeleteCommentPayload) error {
	return s.submit(ctx, models.ActionDeleteComment, p)
}

func (s *ComposerService) ToggleLike(ctx context.Context, p models.ToggleLikePayload) error {
	return s.submit(ctx, models.ActionToggleLike, p)
}

func (s *ComposerService) ToggleBookmark(ctx context.Context, p models.ToggleBookmarkPayload) error {
	return s.submit(ctx, models.ActionToggleBookmark, p)
}

func (s *ComposerService) SendMessage(ctx context.Context, p models.SendMessagePayload) error {
	return s.submit(ctx, models.ActionSendMessage, p)
}

// PendingCount reports how many actions still await delivery.
func (s *ComposerService) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Count(ctx)
}

// SaveDraft upserts a draft without queueing anything.
func (s *ComposerService) SaveDraft(ctx context.Context, d models.Draft) (models.Draft, error) {
	return s.drafts.Save(ctx, d)
}

func (s *ComposerService) ListDrafts(ctx context.Context, typ models.DraftType) ([]models.Draft, error) {
	return s.drafts.List(ctx, typ)
}

func (s *ComposerService) DeleteDraft(ctx context.Context, id string) error {
	return s.drafts.Delete(ctx, id)
}

func (s *ComposerService) ClearDrafts(ctx context.Context, typ models.DraftType) error {
	return s.drafts.Clear(ctx, typ)
}

// PromoteDraft turns a saved draft into a queued action and removes the
// draft. Author identity comes from the session, not the draft.
func (s *ComposerService) PromoteDraft(ctx context.Context, id, authorID, authorName string) error {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("draft %s: %w", id, common.ErrorNotFound)
	}

	switch d.Type {
	case models.DraftTypePost:
		err = s.CreatePost(ctx, models.CreatePostPayload{
			Title:      d.Title,
			Content:    d.Content,
			Category:   d.Category,
			AuthorID:   authorID,
			AuthorName: authorName,
			ImageURLs:  d.ImageURLs,
		})
	case models.DraftTypeComment:
		err = s.CreateComment(ctx, models.CreateCommentPayload{
			PostID:     d.RelatedID,
			Content:    d.Content,
			AuthorID:   authorID,
			AuthorName: authorName,
		})
	case models.DraftTypeMessage:
		err = s.SendMessage(ctx, models.SendMessagePayload{
			ChatID:    d.RelatedID,
			SenderID:  authorID,
			Content:   d.Content,
			ImageURLs: d.ImageURLs,
		})
	default:
		return fmt.Errorf("unknown draft type: %s", d.Type)
	}
	if err != nil {
		return err
	}

	return s.drafts.Delete(ctx, id)
}
