package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripplanner/backend/internal/models"
)

type ArchiveRepo struct {
	pool *pgxpool.Pool
}

func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

// Insert stores a window's bundle. It reports false without error when the
// window was already archived.
func (r *ArchiveRepo) Insert(ctx context.Context, a *models.ForensicsArchive) (bool, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO forensics_archives (window_start, window_end, event_count, correlation_count, bundle)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (window_start) DO NOTHING
		RETURNING id, created_at
	`, a.WindowStart, a.WindowEnd, a.EventCount, a.CorrelationCount, a.Bundle).Scan(&a.ID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert forensics archive: %w", err)
	}
	return true, nil
}

// List returns archive headers, newest window first, without bundle bodies.
func (r *ArchiveRepo) List(ctx context.Context, limit, offset int) ([]models.ForensicsArchive, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, window_start, window_end, event_count, correlation_count, created_at
		FROM forensics_archives
		ORDER BY window_start DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ForensicsArchive
	for rows.Next() {
		var a models.ForensicsArchive
		if err := rows.Scan(&a.ID, &a.WindowStart, &a.WindowEnd, &a.EventCount, &a.CorrelationCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ArchiveRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ForensicsArchive, error) {
	var a models.ForensicsArchive
	err := r.pool.QueryRow(ctx, `
		SELECT id, window_start, window_end, event_count, correlation_count, bundle, created_at
		FROM forensics_archives WHERE id = $1
	`, id).Scan(&a.ID, &a.WindowStart, &a.WindowEnd, &a.EventCount, &a.CorrelationCount, &a.Bundle, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
