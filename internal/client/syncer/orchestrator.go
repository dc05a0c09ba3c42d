package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/outbox"
	"github.com/sangwoolab/townsync/internal/logging"
)

// DefaultResetDelay is how long a completed/failed status stays visible
// before flipping back to idle.
const DefaultResetDelay = 2 * time.Second

// Orchestrator is the single state machine governing when and how the outbox
// drains. At most one pass runs at a time; a pass runs to completion against
// its snapshot and cannot be cancelled mid-flight.
type Orchestrator struct {
	client     client.Client
	queue      *outbox.Queue
	deadLetter *outbox.DeadLetterLog
	monitor    *connectivity.Monitor
	logger     logging.Logger

	retryLimit int
	resetDelay time.Duration

	mu          sync.Mutex
	syncing     bool
	status      Status
	subs        map[int]func(Status)
	nextSub     int
	resetTimer  *time.Timer
	unsubscribe func()
}

func NewOrchestrator(
	c client.Client,
	queue *outbox.Queue,
	deadLetter *outbox.DeadLetterLog,
	monitor *connectivity.Monitor,
	logger logging.Logger,
	retryLimit int,
	resetDelay time.Duration,
) *Orchestrator {
	if retryLimit <= 0 {
		retryLimit = outbox.RetryCeiling
	}
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	return &Orchestrator{
		client:     c,
		queue:      queue,
		deadLetter: deadLetter,
		monitor:    monitor,
		logger:     logger,
		retryLimit: retryLimit,
		resetDelay: resetDelay,
		status:     Status{State: StateIdle},
		subs:       make(map[int]func(Status)),
	}
}

// Start subscribes to connectivity transitions so an offline→online change
// kicks off a pass.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		return
	}
	o.unsubscribe = o.monitor.Subscribe(func(online bool) {
		if online {
			o.TriggerSync(ctx)
		}
	})
}

// Close detaches from the connectivity monitor and stops the reset timer. A
// pass already in flight still runs to completion.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
}

// Status returns the current aggregate status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// OnStatusChange registers a callback for status updates. The returned
// function unsubscribes.
func (o *Orchestrator) OnStatusChange(fn func(Status)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// TriggerSync starts a pass in the background, best-effort. Used for the
// opportunistic trigger after enqueue and for connectivity transitions.
func (o *Orchestrator) TriggerSync(ctx context.Context) {
	go func() {
		if err := o.Sync(ctx); err != nil {
			o.logger.Warn(ctx, "background sync pass failed", "error", err)
		}
	}()
}

// Sync runs one replay pass. It is a no-op while offline or while another
// pass is running. The snapshot taken at entry fixes the pass's work: actions
// enqueued while the pass runs are left for the next one.
func (o *Orchestrator) Sync(ctx context.Context) error {
	if !o.monitor.IsConnected() {
		return nil
	}

	o.mu.Lock()
	if o.syncing {
		o.mu.Unlock()
		return nil
	}
	o.syncing = true
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.syncing = false
		o.mu.Unlock()
	}()

	snapshot, err := o.queue.LoadAll(ctx)
	if err != nil {
		o.setStatus(Status{State: StateFailed, Reason: err.Error()})
		o.scheduleReset()
		return err
	}

	if len(snapshot) == 0 {
		o.setStatus(Status{State: StateCompleted, Progress: 1})
		o.scheduleReset()
		return nil
	}

	o.logger.Info(ctx, "sync pass started", "pending", len(snapshot))
	o.setStatus(Status{State: StateSyncing})

	stillPending := make([]models.PendingAction, 0, len(snapshot))
	failed := 0

	for i, action := range snapshot {
		if err := o.execute(ctx, action); err != nil {
			failed++
			action.RetryCount++
			action.LastError = err.Error()

			if action.RetryCount < o.retryLimit {
				stillPending = append(stillPending, action)
			} else {
				o.logger.Warn(ctx, "action dropped after retry ceiling",
					"id", action.ID, "kind", action.Kind, "error", err)
				if dlErr := o.deadLetter.Append(ctx, action); dlErr != nil {
					o.logger.Error(ctx, "failed to record dead letter", "error", dlErr)
				}
			}
		}

		o.setStatus(Status{
			State:    StateSyncing,
			Progress: float64(i+1) / float64(len(snapshot)),
		})
	}

	if err := o.persistSurvivors(ctx, snapshot, stillPending); err != nil {
		o.setStatus(Status{State: StateFailed, Reason: err.Error()})
		o.scheduleReset()
		return err
	}

	if failed > 0 {
		o.setStatus(Status{State: StateFailed, Reason: failedReason(failed)})
	} else {
		o.setStatus(Status{State: StateCompleted, Progress: 1})
	}
	o.scheduleReset()

	o.logger.Info(ctx, "sync pass finished",
		"processed", len(snapshot), "failed", failed, "still_pending", len(stillPending))
	return nil
}

// failedReason is the aggregate user-facing failure message ("N tasks
// failed").
func failedReason(count int) string {
	return fmt.Sprintf("%d개의 작업이 실패했습니다", count)
}

// persistSurvivors atomically replaces the queue with this pass's retryable
// failures, keeping any actions enqueued after the snapshot was taken so they
// are picked up by the next pass.
func (o *Orchestrator) persistSurvivors(ctx context.Context, snapshot, stillPending []models.PendingAction) error {
	inSnapshot := make(map[string]struct{}, len(snapshot))
	for _, a := range snapshot {
		inSnapshot[a.ID] = struct{}{}
	}

	current, err := o.queue.LoadAll(ctx)
	if err != nil {
		return err
	}

	next := stillPending
	for _, a := range current {
		if _, ok := inSnapshot[a.ID]; !ok {
			next = append(next, a)
		}
	}

	return o.queue.ReplaceAll(ctx, next)
}

// execute replays one action against the corresponding backend write. A
// failure here never aborts the pass; the caller turns it into a retry/drop
// decision.
func (o *Orchestrator) execute(ctx context.Context, action models.PendingAction) error {
	v, err := action.Unwrap()
	if err != nil {
		return err
	}

	switch p := v.(type) {
	case *models.CreatePostPayload:
		return o.client.CreatePost(ctx, *p)
	case *models.UpdatePostPayload:
		return o.client.UpdatePost(ctx, *p)
	case *models.DeletePostPayload:
		return o.client.DeletePost(ctx, *p)
	case *models.CreateCommentPayload:
		return o.client.CreateComment(ctx, *p)
	case *models.DeleteCommentPayload:
		return o.client.DeleteComment(ctx, *p)
	case *models.ToggleLikePayload:
		return o.client.ToggleLike(ctx, *p)
	case *models.ToggleBookmarkPayload:
		return o.client.ToggleBookmark(ctx, *p)
	case *models.SendMessagePayload:
		return o.client.SendMessage(ctx, *p)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownActionKind, action.Kind)
	}
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	subs := make([]func(Status), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// scheduleReset flips a terminal status back to idle after the display delay.
func (o *Orchestrator) scheduleReset() {
	o.mu.Lock()
	if o.resetTimer != nil {
		o.resetTimer.Stop()
	}
	o.resetTimer = time.AfterFunc(o.resetDelay, func() {
		o.setStatus(Status{State: StateIdle})
	})
	o.mu.Unlock()
}
