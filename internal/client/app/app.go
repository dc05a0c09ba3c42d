// Package app wires the offline core together: local storage, the API
// client, connectivity watching, the action queue, and the sync loop.
package app

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/sangwoolab/townsync/internal/client/cache"
	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/config"
	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/client/drafts"
	"github.com/sangwoolab/townsync/internal/client/outbox"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/client/services"
	"github.com/sangwoolab/townsync/internal/client/syncer"
	"github.com/sangwoolab/townsync/internal/logging"
	"github.com/sangwoolab/townsync/internal/timex"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db        *sql.DB
	apiClient *client.HTTPClient

	monitor    *connectivity.Monitor
	queue      *outbox.Queue
	deadLetter *outbox.DeadLetterLog
	cacheStore *cache.Store
	orch       *syncer.Orchestrator

	auth     *services.AuthService
	feed     *services.FeedService
	composer *services.ComposerService
	push     *services.PushService

	session *client.Session
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := kv.Open(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}

	repo := kv.NewSQLiteRepository(db)
	clock := timex.RealClock{}
	apiClient := client.NewHTTPClient(cfg.APIBaseURL)

	monitor := connectivity.NewMonitor(apiClient, logger)
	queue := outbox.NewQueue(repo)
	deadLetter := outbox.NewDeadLetterLog(repo, clock)
	cacheStore := cache.NewStore(repo, clock)
	draftStore := drafts.NewStore(repo, clock)

	orch := syncer.NewOrchestrator(
		apiClient, queue, deadLetter, monitor, logger,
		cfg.SyncRetryLimit, cfg.StatusResetDelay,
	)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		apiClient:  apiClient,
		monitor:    monitor,
		queue:      queue,
		deadLetter: deadLetter,
		cacheStore: cacheStore,
		orch:       orch,
		auth:       services.NewAuthService(apiClient, repo, clock, logger),
		feed:       services.NewFeedService(apiClient, cacheStore, monitor, logger, cfg.CacheMaxAge),
		composer:   services.NewComposerService(queue, draftStore, orch, monitor, clock, logger),
		push:       services.NewPushService(apiClient, monitor, logger),
		reader:     bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the background loops and drives the REPL until the user quits
// or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close(ctx)

	session, err := a.auth.RestoreSession(ctx)
	if err != nil {
		a.logger.Warn(ctx, "failed to restore session", "error", err)
	}
	a.session = session

	a.cleanupCache(ctx)

	unsubscribe := a.queue.OnCountChange(func(count int) {
		a.logger.Debug(ctx, "pending action count changed", "count", count)
	})
	defer unsubscribe()

	a.orch.Start(ctx)
	go a.monitor.Watch(ctx, a.config.OnlineCheckInterval)

	// drain whatever accumulated while the app was closed
	a.orch.TriggerSync(ctx)

	return a.repl(ctx)
}

// cleanupCache enforces the retention policy on start: entries past the
// forced expiry go unconditionally, then the total size is brought under
// the configured limit.
func (a *App) cleanupCache(ctx context.Context) {
	if err := a.cacheStore.CleanupExpired(ctx, a.config.CacheForcedExpiry); err != nil {
		a.logger.Warn(ctx, "cache expiry cleanup failed", "error", err)
	}
	if err := a.cacheStore.CleanupToTargetSize(ctx, a.config.CacheSizeLimitBytes); err != nil {
		a.logger.Warn(ctx, "cache size cleanup failed", "error", err)
	}
}

func (a *App) close(ctx context.Context) {
	a.orch.Close()
	if err := a.apiClient.Close(); err != nil {
		a.logger.Warn(ctx, "failed to close api client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(ctx, "failed to close local database", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}
