package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripplanner/backend/internal/models"
)

// AuditQuery selects a window of either audit trail. Since is inclusive,
// Until exclusive; nil bounds are open.
type AuditQuery struct {
	Since       *time.Time
	Until       *time.Time
	Limit       int
	NewestFirst bool
}

func (q AuditQuery) order() string {
	if q.NewestFirst {
		return "created_at DESC, id DESC"
	}
	return "created_at ASC, id ASC"
}

func (q AuditQuery) limit() int {
	if q.Limit <= 0 {
		return 200
	}
	return q.Limit
}

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const adminColumns = `id, created_at, admin_user_id, admin_email, action, target_type, target_id, before_data, after_data, metadata`

func scanAdmin(row pgx.Row) (models.AdminAuditLog, error) {
	var l models.AdminAuditLog
	err := row.Scan(&l.ID, &l.CreatedAt, &l.AdminUserID, &l.AdminEmail, &l.Action, &l.TargetType, &l.TargetID, &l.BeforeData, &l.AfterData, &l.Metadata)
	return l, err
}

const userColumns = `c.id, c.created_at, c.user_id, p.email, c.action, c.target_type, c.target_id, c.before_data, c.after_data, c.metadata`

func scanUser(row pgx.Row) (models.UserChangeLog, error) {
	var l models.UserChangeLog
	err := row.Scan(&l.ID, &l.CreatedAt, &l.UserID, &l.UserEmail, &l.Action, &l.TargetType, &l.TargetID, &l.BeforeData, &l.AfterData, &l.Metadata)
	return l, err
}

// LogAdminAction appends an admin trail entry and returns its id.
func (r *AuditRepo) LogAdminAction(ctx context.Context, entry models.AdminAuditLog) (uuid.UUID, error) {
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admin_audit_logs (admin_user_id, admin_email, action, target_type, target_id, before_data, after_data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, entry.AdminUserID, entry.AdminEmail, entry.Action, entry.TargetType, entry.TargetID, entry.BeforeData, entry.AfterData, entry.Metadata).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert admin audit log: %w", err)
	}
	return id, nil
}

func (r *AuditRepo) ListAdminActions(ctx context.Context, q AuditQuery) ([]models.AdminAuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+adminColumns+`
		FROM admin_audit_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY `+q.order()+`
		LIMIT $3
	`, q.Since, q.Until, q.limit())
	if err != nil {
		return nil, fmt.Errorf("list admin audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AdminAuditLog
	for rows.Next() {
		l, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *AuditRepo) ListUserChanges(ctx context.Context, q AuditQuery) ([]models.UserChangeLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM user_change_logs c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE ($1::timestamptz IS NULL OR c.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR c.created_at < $2)
		ORDER BY `+q.order()+`
		LIMIT $3
	`, q.Since, q.Until, q.limit())
	if err != nil {
		return nil, fmt.Errorf("list user change logs: %w", err)
	}
	defer rows.Close()

	var logs []models.UserChangeLog
	for rows.Next() {
		l, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *AuditRepo) GetAdminAction(ctx context.Context, id uuid.UUID) (*models.AdminAuditLog, error) {
	l, err := scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_audit_logs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *AuditRepo) GetUserChange(ctx context.Context, id uuid.UUID) (*models.UserChangeLog, error) {
	l, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM user_change_logs c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.id = $1
	`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}
