package supabase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"naxovate-backend/internal/models"
)

const profileColumns = `id, name, username, email, is_admin, is_locked, bio, website,
	avatar_url, avatar_path, avatar_bytes, cover_photo_url, cover_path, cover_bytes,
	created_at, updated_at`

// photoColumns maps a photo kind onto its url, path and size columns.
var photoColumns = map[string][3]string{
	models.PhotoAvatar: {"avatar_url", "avatar_path", "avatar_bytes"},
	models.PhotoCover:  {"cover_photo_url", "cover_path", "cover_bytes"},
}

func (d *DatabaseClient) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := d.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", translate(err))
	}
	return &p, nil
}

// EnsureProfile inserts the profile and its free subscription when missing and
// returns the stored profile. created reports whether a new row was written.
func (d *DatabaseClient) EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, bool, error) {
	var (
		stored  models.Profile
		created bool
	)
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (id, name, username, email, is_admin)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name, p.Username, p.Email, p.IsAdmin)
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", translate(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		created = n > 0

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subscriptions (user_id, plan, plan_key, status, image_limit)
			VALUES ($1, 'free', 'free', 'active', 0)
			ON CONFLICT (user_id) DO NOTHING
		`, p.ID); err != nil {
			return fmt.Errorf("failed to insert subscription: %w", translate(err))
		}

		if err := tx.GetContext(ctx, &stored, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to load profile: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (d *DatabaseClient) UpdateProfile(ctx context.Context, userID uuid.UUID, u models.ProfileUpdate) (*models.Profile, error) {
	var p models.Profile
	err := d.db.GetContext(ctx, &p, `
		UPDATE profiles
		SET name = COALESCE(NULLIF($2, ''), name),
		    username = COALESCE(NULLIF($3, ''), username),
		    bio = CASE WHEN $4::text IS NULL THEN bio ELSE NULLIF($4, '') END,
		    website = CASE WHEN $5::text IS NULL THEN website ELSE NULLIF($5, '') END
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, u.Name, u.Username, u.Bio, u.Website)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", translate(err))
	}
	return &p, nil
}

// SetProfilePhoto points the profile at a newly stored photo. The previous
// object is the caller's to remove.
func (d *DatabaseClient) SetProfilePhoto(ctx context.Context, userID uuid.UUID, photo models.ProfilePhoto) (*models.Profile, error) {
	cols, ok := photoColumns[photo.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown photo kind %q", photo.Kind)
	}

	var p models.Profile
	err := d.db.GetContext(ctx, &p, fmt.Sprintf(`
		UPDATE profiles
		SET %s = $2, %s = $3, %s = $4
		WHERE id = $1
		RETURNING `+profileColumns, cols[0], cols[1], cols[2]),
		userID, photo.URL, photo.Path, photo.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to set profile photo: %w", translate(err))
	}
	return &p, nil
}

func (d *DatabaseClient) SetProfileLocked(ctx context.Context, userID uuid.UUID, locked bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE profiles SET is_locked = $2 WHERE id = $1`, userID, locked)
	if err != nil {
		return fmt.Errorf("failed to lock profile: %w", err)
	}
	return requireRow(res, "lock profile")
}

// DeleteProfile removes a user. Subscriptions, images and tickets cascade.
func (d *DatabaseClient) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return requireRow(res, "delete profile")
}

func (d *DatabaseClient) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	err := d.db.SelectContext(ctx, &users, `
		SELECT p.id, p.name, p.username, p.email, p.is_admin, p.is_locked, p.avatar_url,
		       p.created_at, p.updated_at,
		       s.plan, s.plan_key, s.status, s.images_generated, s.image_limit,
		       s.storage_used, s.current_period_end
		FROM profiles p
		LEFT JOIN subscriptions s ON s.user_id = p.id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (d *DatabaseClient) Stats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	err := d.db.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM profiles) AS total_users,
			(SELECT COUNT(*) FROM subscriptions WHERE plan = 'premium' AND status = 'active') AS premium_users,
			(SELECT COUNT(*) FROM generated_images) AS total_images,
			(SELECT COUNT(*) FROM support_tickets WHERE status <> 'closed') AS open_tickets,
			(SELECT COUNT(*) FROM support_tickets) AS total_tickets
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &s, nil
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

func requireRow(res rowsResult, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return nil
}
