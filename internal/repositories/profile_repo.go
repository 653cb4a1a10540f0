package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripplanner/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `id, email, display_name, admin_role, created_at, last_seen_at`

// UpsertFromToken creates the profile on first sight of a token subject and
// refreshes the email on later requests.
func (r *ProfileRepo) UpsertFromToken(ctx context.Context, id uuid.UUID, email *string) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(EXCLUDED.email, profiles.email),
			last_seen_at = now()
		RETURNING `+profileColumns+`
	`, id, email).Scan(&p.ID, &p.Email, &p.DisplayName, &p.AdminRole, &p.CreatedAt, &p.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.DisplayName, &p.AdminRole, &p.CreatedAt, &p.LastSeenAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// AdminRole returns the stored console role, or "" when the profile has none
// or does not exist.
func (r *ProfileRepo) AdminRole(ctx context.Context, id uuid.UUID) (string, error) {
	var role *string
	err := r.pool.QueryRow(ctx, `SELECT admin_role FROM profiles WHERE id = $1`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if role == nil {
		return "", nil
	}
	return *role, nil
}

func (r *ProfileRepo) UpdateLastSeen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE profiles SET last_seen_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
