package supabase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"naxovate-backend/internal/models"
)

const imageColumns = `id, user_id, url, storage_path, file_name, prompt, style, model, aspect_ratio,
	content_type, size_bytes, parent_id, created_at`

func (d *DatabaseClient) InsertImage(ctx context.Context, img *models.GeneratedImage) (*models.GeneratedImage, error) {
	var out models.GeneratedImage
	err := d.db.GetContext(ctx, &out, `
		INSERT INTO generated_images (user_id, url, storage_path, file_name, prompt, style, model,
			aspect_ratio, content_type, size_bytes, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+imageColumns,
		img.UserID, img.URL, img.StoragePath, img.FileName, img.Prompt, img.Style, img.Model,
		img.AspectRatio, img.ContentType, img.SizeBytes, img.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", translate(err))
	}
	return &out, nil
}

func (d *DatabaseClient) GetImage(ctx context.Context, imageID uuid.UUID) (*models.GeneratedImage, error) {
	var img models.GeneratedImage
	err := d.db.GetContext(ctx, &img, `SELECT `+imageColumns+` FROM generated_images WHERE id = $1`, imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", translate(err))
	}
	return &img, nil
}

func (d *DatabaseClient) GetImageByFileName(ctx context.Context, fileName string) (*models.GeneratedImage, error) {
	var img models.GeneratedImage
	err := d.db.GetContext(ctx, &img, `SELECT `+imageColumns+` FROM generated_images WHERE file_name = $1`, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", translate(err))
	}
	return &img, nil
}

func (d *DatabaseClient) ListImages(ctx context.Context, userID uuid.UUID) ([]models.GeneratedImage, error) {
	images := []models.GeneratedImage{}
	err := d.db.SelectContext(ctx, &images, `
		SELECT `+imageColumns+`
		FROM generated_images
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func (d *DatabaseClient) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM generated_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return requireRow(res, "delete image")
}

// ListImagePaths returns the storage paths of every image a user owns, so the
// objects can be removed before the account is deleted.
func (d *DatabaseClient) ListImagePaths(ctx context.Context, userID uuid.UUID) ([]string, error) {
	paths := []string{}
	err := d.db.SelectContext(ctx, &paths, `SELECT storage_path FROM generated_images WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list image paths: %w", err)
	}
	return paths, nil
}
