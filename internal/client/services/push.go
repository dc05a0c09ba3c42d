package services

import (
	"context"

	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/logging"
)

// PushService manages the device push token on the backend. Registration is
// fire-and-forget: a failure is logged, never surfaced, since notifications
// are a best-effort feature.
type PushService struct {
	client  client.Client
	monitor *connectivity.Monitor
	logger  logging.Logger
}

func NewPushService(c client.Client, monitor *connectivity.Monitor, logger logging.Logger) *PushService {
	return &PushService{client: c, monitor: monitor, logger: logger}
}

// Enable registers the device token for the user. Skipped silently while
// offline; the next app start retries.
func (p *PushService) Enable(ctx context.Context, userID, token string) {
	if !p.monitor.IsConnected() {
		p.logger.Debug(ctx, "offline, skipping push token registration", "user_id", userID)
		return
	}
	if err := p.client.RegisterPushToken(ctx, userID, token); err != nil {
		p.logger.Warn(ctx, "failed to register push token", "user_id", userID, "error", err)
	}
}

// Disable removes the device token, typically on logout.
func (p *PushService) Disable(ctx context.Context, userID string) {
	if !p.monitor.IsConnected() {
		p.logger.Debug(ctx, "offline, skipping push token removal", "user_id", userID)
		return
	}
	if err := p.client.RemovePushToken(ctx, userID); err != nil {
		p.logger.Warn(ctx, "failed to remove push token", "user_id", userID, "error", err)
	}
}
