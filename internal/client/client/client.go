// Package client talks to the community backend API. The rest of the app
// depends only on the Client interface; the HTTP implementation lives in
// http.go.
package client

import (
	"context"

	"github.com/sangwoolab/townsync/internal/client/models"
)

// Session is the credential bundle issued by the backend on login.
type Session struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Client covers every backend operation the offline core replays or reads.
//
// Write operations are expected to tolerate at-least-once delivery: toggles
// self-correct, deletes of missing documents return ErrNotFound which callers
// may treat as success.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password, nickname string) error
	Login(ctx context.Context, email, password string) (*Session, error)

	CreatePost(ctx context.Context, p models.CreatePostPayload) error
	UpdatePost(ctx context.Context, p models.UpdatePostPayload) error
	DeletePost(ctx context.Context, p models.DeletePostPayload) error
	CreateComment(ctx context.Context, p models.CreateCommentPayload) error
	DeleteComment(ctx context.Context, p models.DeleteCommentPayload) error
	ToggleLike(ctx context.Context, p models.ToggleLikePayload) error
	ToggleBookmark(ctx context.Context, p models.ToggleBookmarkPayload) error
	SendMessage(ctx context.Context, p models.SendMessagePayload) error

	ListPosts(ctx context.Context, category, sort, cursor string, limit int) ([]models.Post, string, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListComments(ctx context.Context, postID, cursor string, limit int) ([]models.Comment, string, error)
	ListBusinesses(ctx context.Context, category, cursor string, limit int) ([]models.Business, string, error)
	GetExchangeRates(ctx context.Context) ([]models.ExchangeRate, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	RegisterPushToken(ctx context.Context, userID, token string) error
	RemovePushToken(ctx context.Context, userID string) error

	UploadImage(ctx context.Context, data []byte) (string, error)
}
