package connection

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dermahub/dermahub/internal/platform/auth"
	"github.com/dermahub/dermahub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, kind, requester_id, target_id, approver_role, message, payload,
	status, created_at, resolved_at, resolved_by`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.Kind, &req.RequesterID, &req.TargetID, &req.ApproverRole,
		&req.Message, &req.Payload, &req.Status, &req.CreatedAt, &req.ResolvedAt, &req.ResolvedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return &req, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	req.Status = StatusPending
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO connection_request (id, kind, requester_id, target_id, approver_role, message, payload, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		req.ID, req.Kind, req.RequesterID, req.TargetID, req.ApproverRole, req.Message, req.Payload, req.Status)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM connection_request WHERE id = $1`, id))
}

func (r *requestRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM connection_request WHERE id = $1 FOR UPDATE`, id))
}

func (r *requestRepoPG) Resolve(ctx context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE connection_request
		SET status = $2, resolved_at = NOW(), resolved_by = $3
		WHERE id = $1 AND status = 'pending'`,
		id, status, resolvedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *requestRepoPG) HasPendingToTarget(ctx context.Context, requesterID, targetID uuid.UUID, kind Kind) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connection_request
			WHERE requester_id = $1 AND target_id = $2 AND kind = $3 AND status = 'pending')`,
		requesterID, targetID, kind).Scan(&exists)
	return exists, err
}

func (r *requestRepoPG) HasPendingByRequester(ctx context.Context, requesterID uuid.UUID, kind Kind) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connection_request
			WHERE requester_id = $1 AND kind = $2 AND status = 'pending')`,
		requesterID, kind).Scan(&exists)
	return exists, err
}

func (r *requestRepoPG) listPending(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM connection_request WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM connection_request
		WHERE `+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}

func (r *requestRepoPG) ListPendingForTarget(ctx context.Context, targetID uuid.UUID, kind Kind, limit, offset int) ([]*Request, int, error) {
	return r.listPending(ctx, `target_id = $1 AND kind = $2 AND status = 'pending'`,
		[]interface{}{targetID, kind}, limit, offset)
}

func (r *requestRepoPG) CountPendingForTarget(ctx context.Context, targetID uuid.UUID, kind Kind) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM connection_request
		WHERE target_id = $1 AND kind = $2 AND status = 'pending'`,
		targetID, kind).Scan(&total)
	return total, err
}

func (r *requestRepoPG) ListPendingForRole(ctx context.Context, role auth.Role, kind Kind, limit, offset int) ([]*Request, int, error) {
	return r.listPending(ctx, `approver_role = $1 AND kind = $2 AND status = 'pending'`,
		[]interface{}{role, kind}, limit, offset)
}

func (r *requestRepoPG) CountPendingForRole(ctx context.Context, role auth.Role, kind Kind) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM connection_request
		WHERE approver_role = $1 AND kind = $2 AND status = 'pending'`,
		role, kind).Scan(&total)
	return total, err
}

func (r *requestRepoPG) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM connection_request WHERE requester_id = $1`, requesterID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM connection_request
		WHERE requester_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		requesterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}
