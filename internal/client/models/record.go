package models

import "time"

// Post is a community post as returned by the backend.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	ImageURLs     []string  `json:"image_urls,omitempty"`
	LikeCount     int       `json:"like_count"`
	CommentCount  int       `json:"comment_count"`
	BookmarkCount int       `json:"bookmark_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment belongs to a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Business is a directory listing.
type Business struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
}

// Message is a single chat message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExchangeRate is one currency pair quote.
type ExchangeRate struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}

// UserProfile is the signed-in user's profile snapshot.
type UserProfile struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Region      string `json:"region,omitempty"`
	PostCount   int    `json:"post_count"`
	ReviewCount int    `json:"review_count"`
}
