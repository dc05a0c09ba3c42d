package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/logging"

	_ "modernc.org/sqlite"
)

func setupKV(t *testing.T) kv.Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return kv.NewSQLiteRepository(db)
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAPI embeds client.Client so each test overrides only what it calls.
type fakeAPI struct {
	client.Client

	mu      sync.Mutex
	calls   []string
	err     error
	posts   []models.Post
	rates   []models.ExchangeRate
	session *client.Session

	installed *client.Session
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Ping(context.Context) error { return nil }

func (f *fakeAPI) ListPosts(ctx context.Context, category, sort, cursor string, limit int) ([]models.Post, string, error) {
	f.record("ListPosts")
	return f.posts, "", f.err
}

func (f *fakeAPI) GetExchangeRates(ctx context.Context) ([]models.ExchangeRate, error) {
	f.record("GetExchangeRates")
	return f.rates, f.err
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*client.Session, error) {
	f.record("Login")
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAPI) Register(ctx context.Context, email, password, nickname string) error {
	f.record("Register")
	return f.err
}

func (f *fakeAPI) RegisterPushToken(ctx context.Context, userID, token string) error {
	f.record("RegisterPushToken")
	return f.err
}

func (f *fakeAPI) RemovePushToken(ctx context.Context, userID string) error {
	f.record("RemovePushToken")
	return f.err
}

func (f *fakeAPI) CreatePost(ctx context.Context, p models.CreatePostPayload) error {
	f.record("CreatePost")
	return f.err
}

func (f *fakeAPI) SendMessage(ctx context.Context, p models.SendMessagePayload) error {
	f.record("SendMessage")
	return f.err
}

func (f *fakeAPI) SetSession(s *client.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = s
}
