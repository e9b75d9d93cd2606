package supabase_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/supabase"
)

var subscriptionCols = []string{
	"id", "user_id", "plan", "plan_key", "status", "images_generated", "storage_used", "image_limit",
	"current_period_start", "current_period_end", "cancel_at_period_end",
	"stripe_customer_id", "stripe_subscription_id", "created_at", "updated_at",
}

func newMockClient(t *testing.T) (*supabase.DatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return supabase.NewDatabaseClientFromDB(db), mock
}

func subscriptionRow(userID uuid.UUID, generated, limit int) *sqlmock.Rows {
	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)
	return sqlmock.NewRows(subscriptionCols).AddRow(
		uuid.New().String(), userID.String(), "premium", "monthly", "active", generated, int64(0), limit,
		now, end, false, nil, nil, now, now,
	)
}

func TestReserveGenerations_Success(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE subscriptions\s+SET images_generated = images_generated \+ \$2`).
		WithArgs(userID, 1, now).
		WillReturnRows(subscriptionRow(userID, 6, 60))

	sub, err := client.ReserveGenerations(context.Background(), userID, 1, now)
	require.NoError(t, err)
	assert.Equal(t, 6, sub.ImagesGenerated)
	assert.Equal(t, "monthly", sub.PlanKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveGenerations_LimitReached(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(userID, 1, now).
		WillReturnRows(sqlmock.NewRows(subscriptionCols))

	_, err := client.ReserveGenerations(context.Background(), userID, 1, now)
	assert.ErrorIs(t, err, supabase.ErrLimitReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStorage(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()

	mock.ExpectExec(`SET storage_used = storage_used \+ \$2`).
		WithArgs(userID, int64(500), int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET storage_used = storage_used \+ \$2`).
		WithArgs(userID, int64(900), int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, client.AddStorage(context.Background(), userID, 500, 1000))
	assert.ErrorIs(t, client.AddStorage(context.Background(), userID, 900, 1000), supabase.ErrLimitReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseGenerations_FloorsAtZero(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()

	mock.ExpectExec(`GREATEST\(images_generated - \$2, 0\)`).
		WithArgs(userID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.ReleaseGenerations(context.Background(), userID, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPlan_ResetsCounter(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()
	start := time.Now()
	end := start.Add(30 * 24 * time.Hour)

	mock.ExpectQuery(`INSERT INTO subscriptions .* ON CONFLICT \(user_id\) DO UPDATE SET`).
		WithArgs(userID, "premium", "monthly", "active", 60, &start, &end, nil, nil).
		WillReturnRows(subscriptionRow(userID, 0, 60))

	sub, err := client.ApplyPlan(context.Background(), userID, models.PlanChange{
		Plan: "premium", PlanKey: "monthly", Status: "active", ImageLimit: 60,
		PeriodStart: &start, PeriodEnd: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sub.ImagesGenerated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscription_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM subscriptions WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	_, err := client.GetSubscription(context.Background(), userID)
	assert.ErrorIs(t, err, supabase.ErrNotFound)
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()

	mock.ExpectQuery(`UPDATE profiles`).
		WithArgs(userID, "", "taken", nil, nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_username_key"})

	_, err := client.UpdateProfile(context.Background(), userID, models.ProfileUpdate{Username: "taken"})
	assert.ErrorIs(t, err, supabase.ErrConflict)
}

var profileCols = []string{
	"id", "name", "username", "email", "is_admin", "is_locked", "bio", "website",
	"avatar_url", "avatar_path", "avatar_bytes", "cover_photo_url", "cover_path", "cover_bytes",
	"created_at", "updated_at",
}

func TestSetProfilePhoto_WritesKindColumns(t *testing.T) {
	client, mock := newMockClient(t)
	userID := uuid.New()
	now := time.Now()
	path := "users/" + userID.String() + "/cover/c.png"

	mock.ExpectQuery(`SET cover_photo_url = \$2, cover_path = \$3, cover_bytes = \$4`).
		WithArgs(userID, "https://cdn/c.png", path, int64(2048)).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(
			userID.String(), "Jane", "jane", "jane@example.com", false, false, nil, nil,
			nil, nil, int64(0), "https://cdn/c.png", path, int64(2048), now, now,
		))

	p, err := client.SetProfilePhoto(context.Background(), userID, models.ProfilePhoto{
		Kind: models.PhotoCover, URL: "https://cdn/c.png", Path: path, Bytes: 2048,
	})
	require.NoError(t, err)
	photo := p.Photo(models.PhotoCover)
	require.NotNil(t, photo)
	assert.Equal(t, int64(2048), photo.Bytes)
	assert.Nil(t, p.Photo(models.PhotoAvatar))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetProfilePhoto_UnknownKind(t *testing.T) {
	client, mock := newMockClient(t)

	_, err := client.SetProfilePhoto(context.Background(), uuid.New(), models.ProfilePhoto{Kind: "banner"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMessage_MovesTicketInOneTransaction(t *testing.T) {
	client, mock := newMockClient(t)
	ticketID, adminID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO support_messages`).
		WithArgs(ticketID, adminID, "on it", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "sender_id", "message", "is_admin_reply", "created_at"}).
			AddRow(uuid.New().String(), ticketID.String(), adminID.String(), "on it", true, now))
	mock.ExpectQuery(`UPDATE support_tickets\s+SET status = COALESCE\(NULLIF\(\$2, ''\), status\)`).
		WithArgs(ticketID, "in_progress").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "subject", "status", "priority", "created_at", "updated_at"}).
			AddRow(ticketID.String(), uuid.New().String(), "help", "in_progress", "medium", now, now))
	mock.ExpectCommit()

	msg, ticket, err := client.AddMessage(context.Background(), ticketID, adminID, "on it", true, "in_progress")
	require.NoError(t, err)
	assert.True(t, msg.IsAdminReply)
	assert.Equal(t, "in_progress", ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRolloverExpired(t *testing.T) {
	client, mock := newMockClient(t)
	now := time.Now()

	mock.ExpectExec(`WHERE plan = 'premium' AND cancel_at_period_end AND current_period_end <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`SET status = 'past_due'`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	downgraded, pastDue, err := client.RolloverExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), downgraded)
	assert.Equal(t, int64(3), pastDue)
	assert.NoError(t, mock.ExpectationsWereMet())
}
