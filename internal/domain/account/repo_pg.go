package account

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

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, password_hash, display_name, avatar_url, bio, roles, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Bio,
		&u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO account (id, email, password_hash, display_name, avatar_url, bio, roles)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.Bio, u.Roles)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM account WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM account WHERE lower(email) = lower($1)`, email))
}

func (r *userRepoPG) UpdateProfile(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE account SET display_name=$2, avatar_url=$3, bio=$4, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.DisplayName, u.AvatarURL, u.Bio)
	return err
}

func (r *userRepoPG) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE account SET roles=$2, updated_at=NOW() WHERE id = $1`, id, roles)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM account`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM account ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

// =========== Friend Repository ===========

type friendRepoPG struct{ pool *pgxpool.Pool }

func NewFriendRepoPG(pool *pgxpool.Pool) FriendRepository {
	return &friendRepoPG{pool: pool}
}

func (r *friendRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *friendRepoPG) Add(ctx context.Context, userID, friendID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO account_friend (user_id, friend_id)
		VALUES ($1,$2), ($2,$1)
		ON CONFLICT (user_id, friend_id) DO NOTHING`,
		userID, friendID)
	return err
}

func (r *friendRepoPG) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM account_friend
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`,
		userID, friendID)
	return err
}

func (r *friendRepoPG) Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM account_friend WHERE user_id = $1 AND friend_id = $2)`,
		userID, friendID).Scan(&exists)
	return exists, err
}

func (r *friendRepoPG) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM account_friend WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.email, a.password_hash, a.display_name, a.avatar_url, a.bio, a.roles, a.created_at, a.updated_at
		FROM account a
		JOIN account_friend f ON f.friend_id = a.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Bio,
			&u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &u)
	}
	return items, total, nil
}
