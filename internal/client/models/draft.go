package models

import "time"

// DraftType classifies an in-progress composition.
type DraftType string

const (
	DraftTypePost    DraftType = "post"
	DraftTypeComment DraftType = "comment"
	DraftTypeMessage DraftType = "message"
)

// Draft is a locally persisted, not-yet-submitted user composition. Drafts are
// independent of the outbox: the UI explicitly promotes a draft into a
// PendingAction (or discards it).
type Draft struct {
	ID        string    `json:"id"`
	Type      DraftType `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	Category  string    `json:"category,omitempty"`
	// RelatedID links the draft to its target, e.g. the parent post of a
	// comment draft or the chat of a message draft.
	RelatedID string    `json:"related_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
