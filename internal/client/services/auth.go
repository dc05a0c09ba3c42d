package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/repositories/kv"
	"github.com/sangwoolab/townsync/internal/common"
	"github.com/sangwoolab/townsync/internal/logging"
	"github.com/sangwoolab/townsync/internal/timex"
)

const sessionKey = "session:current"

// sessionInstaller is implemented by clients that carry bearer tokens, so a
// restored session can be installed without re-authenticating.
type sessionInstaller interface {
	SetSession(*client.Session)
}

// AuthService authenticates against the backend and persists the issued
// session locally so an app restart does not force a fresh login.
type AuthService struct {
	client client.Client
	repo   kv.Repository
	clock  timex.Clock
	logger logging.Logger
}

func NewAuthService(c client.Client, repo kv.Repository, clock timex.Clock, logger logging.Logger) *AuthService {
	return &AuthService{client: c, repo: repo, clock: clock, logger: logger}
}

// Register creates a new account on the server.
func (a *AuthService) Register(ctx context.Context, email, password, nickname string) error {
	return a.client.Register(ctx, email, password, nickname)
}

// Login authenticates online and persists the session for later restores.
func (a *AuthService) Login(ctx context.Context, email, password string) (*client.Session, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := a.saveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

// RestoreSession loads the persisted session, if any, and installs it on the
// client. A session whose refresh token has expired is discarded; an expired
// access token alone is fine, the client refreshes it on first use.
func (a *AuthService) RestoreSession(ctx context.Context) (*client.Session, error) {
	blob, err := a.repo.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if blob == nil {
		return nil, nil
	}

	var s client.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if expired, err := tokenExpired(s.RefreshToken, a.clock.Now()); err != nil {
		a.logger.Warn(ctx, "stored refresh token unreadable, discarding session", "error", err)
		_ = a.Logout(ctx)
		return nil, nil
	} else if expired {
		_ = a.Logout(ctx)
		return nil, nil
	}

	if installer, ok := a.client.(sessionInstaller); ok {
		installer.SetSession(&s)
	}
	return &s, nil
}

// Logout clears the persisted session and the client's tokens.
func (a *AuthService) Logout(ctx context.Context) error {
	if installer, ok := a.client.(sessionInstaller); ok {
		installer.SetSession(nil)
	}
	if err := a.repo.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (a *AuthService) saveSession(ctx context.Context, s *client.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return a.repo.Set(ctx, sessionKey, blob)
}

// tokenExpired inspects the exp claim without verifying the signature; the
// server remains the authority, this only avoids offering a session that is
// guaranteed to be rejected.
func tokenExpired(token string, now time.Time) (bool, error) {
	if token == "" {
		return true, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return false, nil
	}
	return exp.Before(now), nil
}
