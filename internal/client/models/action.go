// Package models defines the data types persisted and exchanged by the
// townsync client: queued actions, drafts, cache entries and domain records.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionKind classifies a queued mutation.
type ActionKind string

const (
	ActionCreatePost     ActionKind = "createPost"
	ActionUpdatePost     ActionKind = "updatePost"
	ActionDeletePost     ActionKind = "deletePost"
	ActionCreateComment  ActionKind = "createComment"
	ActionDeleteComment  ActionKind = "deleteComment"
	ActionToggleLike     ActionKind = "toggleLike"
	ActionToggleBookmark ActionKind = "toggleBookmark"
	ActionSendMessage    ActionKind = "sendMessage"
)

var ErrUnknownActionKind = errors.New("unknown action kind")

// PendingAction is a single not-yet-applied mutation held in the outbox.
// Payload is a kind-specific JSON document; use Unwrap to recover its
// concrete shape on replay.
type PendingAction struct {
	ID         string          `json:"id"`
	Kind       ActionKind      `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}

// WrapAction builds a PendingAction around a typed payload, assigning a fresh
// id and the given creation time.
func WrapAction(kind ActionKind, v any, now time.Time) (PendingAction, error) {
	if _, ok := payloadPrototypes[kind]; !ok {
		return PendingAction{}, fmt.Errorf("%w: %s", ErrUnknownActionKind, kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return PendingAction{}, err
	}
	return PendingAction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   b,
		CreatedAt: now,
	}, nil
}

// payloadPrototypes is the decode table mapping kind → payload schema.
var payloadPrototypes = map[ActionKind]func() any{
	ActionCreatePost:     func() any { return &CreatePostPayload{} },
	ActionUpdatePost:     func() any { return &UpdatePostPayload{} },
	ActionDeletePost:     func() any { return &DeletePostPayload{} },
	ActionCreateComment:  func() any { return &CreateCommentPayload{} },
	ActionDeleteComment:  func() any { return &DeleteCommentPayload{} },
	ActionToggleLike:     func() any { return &ToggleLikePayload{} },
	ActionToggleBookmark: func() any { return &ToggleBookmarkPayload{} },
	ActionSendMessage:    func() any { return &SendMessagePayload{} },
}

// Unwrap decodes the payload into its concrete type for the action's kind.
// The returned value is a pointer to one of the *Payload structs below.
func (a PendingAction) Unwrap() (any, error) {
	proto, ok := payloadPrototypes[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionKind, a.Kind)
	}
	v := proto()
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", a.Kind, err)
	}
	return v, nil
}

// CreatePostPayload carries a new community post.
type CreatePostPayload struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	AuthorID   string   `json:"author_id"`
	AuthorName string   `json:"author_name"`
	ImageURLs  []string `json:"image_urls,omitempty"`
}

// UpdatePostPayload carries edits to an existing post.
type UpdatePostPayload struct {
	PostID    string   `json:"post_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

type DeletePostPayload struct {
	PostID string `json:"post_id"`
}

type CreateCommentPayload struct {
	PostID     string `json:"post_id"`
	Content    string `json:"content"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
}

type DeleteCommentPayload struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
}

// ToggleLikePayload flips the like state; duplicate delivery self-corrects
// via toggle semantics.
type ToggleLikePayload struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

type ToggleBookmarkPayload struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

type SendMessagePayload struct {
	ChatID    string   `json:"chat_id"`
	SenderID  string   `json:"sender_id"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls,omitempty"`
}
