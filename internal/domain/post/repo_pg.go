package post

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dermahub/dermahub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Post Repository ===========

type postRepoPG struct{ pool *pgxpool.Pool }

func NewPostRepoPG(pool *pgxpool.Pool) PostRepository {
	return &postRepoPG{pool: pool}
}

func (r *postRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *postRepoPG) Create(ctx context.Context, p *Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO post (id, author_id, caption, photo_url)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		p.ID, p.AuthorID, p.Caption, p.PhotoURL).
		Scan(&p.CreatedAt)
}

func (r *postRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p Post
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, author_id, caption, photo_url, created_at
		FROM post WHERE id = $1`, id).
		Scan(&p.ID, &p.AuthorID, &p.Caption, &p.PhotoURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return &p, err
}

func (r *postRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

const feedCols = `p.id, p.author_id, p.caption, p.photo_url, p.created_at, a.display_name`

func scanFeedItem(row pgx.Row) (*FeedItem, error) {
	var item FeedItem
	err := row.Scan(&item.ID, &item.AuthorID, &item.Caption, &item.PhotoURL,
		&item.CreatedAt, &item.AuthorName)
	return &item, err
}

func (r *postRepoPG) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*FeedItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM post WHERE author_id = $1`, authorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+feedCols+` FROM post p
		JOIN account a ON a.id = p.author_id
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`,
		authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectFeedItems(rows, total)
}

func (r *postRepoPG) ListFeed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*FeedItem, int, error) {
	const visible = `(p.author_id = $1 OR p.author_id IN (
		SELECT friend_id FROM account_friend WHERE user_id = $1))`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM post p WHERE `+visible, viewerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+feedCols+` FROM post p
		JOIN account a ON a.id = p.author_id
		WHERE `+visible+`
		ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`,
		viewerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectFeedItems(rows, total)
}

func collectFeedItems(rows pgx.Rows, total int) ([]*FeedItem, int, error) {
	var items []*FeedItem
	for rows.Next() {
		item, err := scanFeedItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// =========== Feedback Repository ===========

type feedbackRepoPG struct{ pool *pgxpool.Pool }

func NewFeedbackRepoPG(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepoPG{pool: pool}
}

func (r *feedbackRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO post_feedback (id, post_id, author_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		f.ID, f.PostID, f.AuthorID, f.Body).
		Scan(&f.CreatedAt)
}

func (r *feedbackRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	var f Feedback
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT f.id, f.post_id, f.author_id, a.display_name, f.body, f.created_at
		FROM post_feedback f
		JOIN account a ON a.id = f.author_id
		WHERE f.id = $1`, id).
		Scan(&f.ID, &f.PostID, &f.AuthorID, &f.AuthorName, &f.Body, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFeedbackNotFound
	}
	return &f, err
}

func (r *feedbackRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM post_feedback WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func (r *feedbackRepoPG) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM post_feedback WHERE post_id = $1`, postID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT f.id, f.post_id, f.author_id, a.display_name, f.body, f.created_at
		FROM post_feedback f
		JOIN account a ON a.id = f.author_id
		WHERE f.post_id = $1
		ORDER BY f.created_at ASC LIMIT $2 OFFSET $3`,
		postID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.PostID, &f.AuthorID, &f.AuthorName, &f.Body, &f.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &f)
	}
	return items, total, rows.Err()
}
