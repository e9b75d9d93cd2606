package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Username      string    `db:"username" json:"username"`
	Email         string    `db:"email" json:"email"`
	IsAdmin       bool      `db:"is_admin" json:"is_admin"`
	IsLocked      bool      `db:"is_locked" json:"is_locked"`
	Bio           *string   `db:"bio" json:"bio,omitempty"`
	Website       *string   `db:"website" json:"website,omitempty"`
	AvatarURL     *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	AvatarPath    *string   `db:"avatar_path" json:"-"`
	AvatarBytes   int64     `db:"avatar_bytes" json:"-"`
	CoverPhotoURL *string   `db:"cover_photo_url" json:"cover_photo_url,omitempty"`
	CoverPath     *string   `db:"cover_path" json:"-"`
	CoverBytes    int64     `db:"cover_bytes" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Profile photo kinds. Each kind has its own url, object path and size.
const (
	PhotoAvatar = "avatar"
	PhotoCover  = "cover"
)

// ProfilePhoto is a stored avatar or cover photo.
type ProfilePhoto struct {
	Kind  string
	URL   string
	Path  string
	Bytes int64
}

// Photo returns the stored photo of the given kind, or nil when none is set.
func (p *Profile) Photo(kind string) *ProfilePhoto {
	var url, path *string
	var size int64
	switch kind {
	case PhotoAvatar:
		url, path, size = p.AvatarURL, p.AvatarPath, p.AvatarBytes
	case PhotoCover:
		url, path, size = p.CoverPhotoURL, p.CoverPath, p.CoverBytes
	}
	if path == nil || *path == "" {
		return nil
	}
	photo := &ProfilePhoto{Kind: kind, Path: *path, Bytes: size}
	if url != nil {
		photo.URL = *url
	}
	return photo
}

// ProfileUpdate carries the editable profile fields. Empty name or username
// keeps the stored value; a nil bio or website is left alone and an empty
// one clears it.
type ProfileUpdate struct {
	Name     string
	Username string
	Bio      *string
	Website  *string
}

// UserSummary is a profile joined with its subscription, used by the admin user list.
type UserSummary struct {
	Profile
	Plan            *string    `db:"plan" json:"plan,omitempty"`
	PlanKey         *string    `db:"plan_key" json:"plan_key,omitempty"`
	Status          *string    `db:"status" json:"status,omitempty"`
	ImagesGenerated *int       `db:"images_generated" json:"images_generated,omitempty"`
	ImageLimit      *int       `db:"image_limit" json:"image_limit,omitempty"`
	StorageUsed     *int64     `db:"storage_used" json:"storage_used,omitempty"`
	PeriodEnd       *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
}

type FeatureFlag struct {
	Feature   string    `json:"feature"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
