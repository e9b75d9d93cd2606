package supabase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/supabase-community/supabase-go"
	"naxovate-backend/internal/config"
	"naxovate-backend/internal/models"
)

const featureFlagsTable = "feature_flags"

// Client wraps the PostgREST API. It is used for data the admin console
// edits directly, which keeps row level security in one place.
type Client struct {
	Supabase *supabase.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{Supabase: client}, nil
}

type featureFlagRow struct {
	Feature   string    `json:"feature"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Client) ListFeatureFlags(_ context.Context) ([]models.FeatureFlag, error) {
	var rows []featureFlagRow
	if _, err := c.Supabase.From(featureFlagsTable).Select("*", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("failed to list feature flags: %w", err)
	}

	flags := make([]models.FeatureFlag, len(rows))
	for i, r := range rows {
		flags[i] = models.FeatureFlag{Feature: r.Feature, Enabled: r.Enabled, UpdatedAt: r.UpdatedAt}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Feature < flags[j].Feature })
	return flags, nil
}

func (c *Client) SetFeatureFlag(_ context.Context, feature string, enabled bool) (*models.FeatureFlag, error) {
	row := featureFlagRow{Feature: feature, Enabled: enabled, UpdatedAt: time.Now().UTC()}

	var out []featureFlagRow
	_, err := c.Supabase.From(featureFlagsTable).
		Upsert(row, "feature", "representation", "").
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to update feature flag: %w", err)
	}
	if len(out) > 0 {
		row = out[0]
	}
	return &models.FeatureFlag{Feature: row.Feature, Enabled: row.Enabled, UpdatedAt: row.UpdatedAt}, nil
}
