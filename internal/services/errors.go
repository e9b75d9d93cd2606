package services

import (
	"errors"
	"fmt"

	"naxovate-backend/internal/supabase"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("already exists")
	ErrPlanRequired    = errors.New("an active premium plan is required")
	ErrQuotaExceeded   = errors.New("image generation limit reached for this period")
	ErrStorageExceeded = errors.New("storage limit reached")
	ErrUpstream        = errors.New("upstream service failed")
	ErrNotConfigured   = errors.New("feature is not configured")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// repoErr maps repository sentinels onto service errors and leaves anything
// else wrapped as is.
func repoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, supabase.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, supabase.ErrConflict):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return err
	}
}
