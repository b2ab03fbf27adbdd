package post

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxCaptionLen = 2000

type Service struct {
	posts    PostRepository
	feedback FeedbackRepository
}

func NewService(posts PostRepository, feedback FeedbackRepository) *Service {
	return &Service{posts: posts, feedback: feedback}
}

type PublishInput struct {
	Caption  string  `json:"caption"`
	PhotoURL *string `json:"photo_url"`
}

func (s *Service) Publish(ctx context.Context, authorID uuid.UUID, in PublishInput) (*Post, error) {
	in.Caption = strings.TrimSpace(in.Caption)
	if in.Caption == "" && in.PhotoURL == nil {
		return nil, fmt.Errorf("a caption or photo is required")
	}
	if len(in.Caption) > maxCaptionLen {
		return nil, fmt.Errorf("caption exceeds %d characters", maxCaptionLen)
	}

	p := &Post{AuthorID: authorID, Caption: in.Caption, PhotoURL: in.PhotoURL}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Feed lists the viewer's own posts and their friends' posts, newest first.
func (s *Service) Feed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*FeedItem, int, error) {
	return s.posts.ListFeed(ctx, viewerID, limit, offset)
}

func (s *Service) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*FeedItem, int, error) {
	return s.posts.ListByAuthor(ctx, authorID, limit, offset)
}

// Remove deletes a post. The author may remove their own; moderators may
// remove anyone's.
func (s *Service) Remove(ctx context.Context, postID, actorID uuid.UUID, moderator bool) error {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != actorID && !moderator {
		return ErrNotAuthor
	}
	return s.posts.Delete(ctx, postID)
}

// Comment appends feedback to a post. Feedback is append-only: it can be
// removed by moderation but never edited.
func (s *Service) Comment(ctx context.Context, postID, authorID uuid.UUID, body string) (*Feedback, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("feedback body is required")
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	f := &Feedback{PostID: postID, AuthorID: authorID, Body: body}
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) ListFeedback(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, 0, err
	}
	return s.feedback.ListByPost(ctx, postID, limit, offset)
}

// RemoveFeedback deletes a comment. Same rule as posts: author or moderator.
func (s *Service) RemoveFeedback(ctx context.Context, feedbackID, actorID uuid.UUID, moderator bool) error {
	f, err := s.feedback.GetByID(ctx, feedbackID)
	if err != nil {
		return err
	}
	if f.AuthorID != actorID && !moderator {
		return ErrNotAuthor
	}
	return s.feedback.Delete(ctx, feedbackID)
}
