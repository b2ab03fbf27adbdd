package post

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrNotAuthor        = errors.New("only the author may remove this")
)

// Post is a progress update on the social feed: a caption and an optional
// photo served from the blob store.
type Post struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Caption   string    `db:"caption" json:"caption"`
	PhotoURL  *string   `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeedItem is a post joined with the author's display name for feed rendering.
type FeedItem struct {
	Post
	AuthorName string `json:"author_name"`
}

// Feedback is an append-only comment on a post.
type Feedback struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PostID     uuid.UUID `db:"post_id" json:"post_id"`
	AuthorID   uuid.UUID `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
