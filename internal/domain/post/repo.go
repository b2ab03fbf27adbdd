package post

import (
	"context"

	"github.com/google/uuid"
)

type PostRepository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*FeedItem, int, error)
	// ListFeed returns posts by the viewer and the viewer's friends,
	// newest first.
	ListFeed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*FeedItem, int, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*Feedback, int, error)
}
