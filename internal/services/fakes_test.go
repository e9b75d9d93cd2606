package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"naxovate-backend/internal/billing"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/social"
	"naxovate-backend/internal/supabase"
)

// memDB is an in-memory stand-in for supabase.DatabaseClient with the same
// conditional update semantics.
type memDB struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile
	subs     map[uuid.UUID]*models.Subscription
	images   map[uuid.UUID]*models.GeneratedImage
	tickets  map[uuid.UUID]*models.SupportTicket
	messages []models.SupportMessage
	clock    time.Time

	failPhoto error
}

func newMemDB() *memDB {
	return &memDB{
		profiles: map[uuid.UUID]*models.Profile{},
		subs:     map[uuid.UUID]*models.Subscription{},
		images:   map[uuid.UUID]*models.GeneratedImage{},
		tickets:  map[uuid.UUID]*models.SupportTicket{},
		clock:    time.Now().Add(-time.Hour),
	}
}

func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func notFound(what string) error {
	return fmt.Errorf("failed to get %s: %w", what, supabase.ErrNotFound)
}

func (m *memDB) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) EnsureProfile(_ context.Context, p *models.Profile) (*models.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := false
	if _, ok := m.profiles[p.ID]; !ok {
		cp := *p
		cp.CreatedAt = m.tick()
		m.profiles[p.ID] = &cp
		created = true
	}
	if _, ok := m.subs[p.ID]; !ok {
		m.subs[p.ID] = &models.Subscription{ID: uuid.New(), UserID: p.ID, Plan: "free", PlanKey: "free", Status: "active"}
	}
	cp := *m.profiles[p.ID]
	return &cp, created, nil
}

func (m *memDB) UpdateProfile(_ context.Context, id uuid.UUID, u models.ProfileUpdate) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	for oid, other := range m.profiles {
		if oid != id && u.Username != "" && other.Username == u.Username {
			return nil, fmt.Errorf("failed to update profile: %w", supabase.ErrConflict)
		}
	}
	if u.Name != "" {
		p.Name = u.Name
	}
	if u.Username != "" {
		p.Username = u.Username
	}
	if u.Bio != nil {
		p.Bio = nonEmpty(*u.Bio)
	}
	if u.Website != nil {
		p.Website = nonEmpty(*u.Website)
	}
	cp := *p
	return &cp, nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (m *memDB) SetProfilePhoto(_ context.Context, id uuid.UUID, photo models.ProfilePhoto) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPhoto != nil {
		return nil, m.failPhoto
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	url, path := photo.URL, photo.Path
	switch photo.Kind {
	case models.PhotoAvatar:
		p.AvatarURL, p.AvatarPath, p.AvatarBytes = &url, &path, photo.Bytes
	case models.PhotoCover:
		p.CoverPhotoURL, p.CoverPath, p.CoverBytes = &url, &path, photo.Bytes
	default:
		return nil, fmt.Errorf("unknown photo kind %q", photo.Kind)
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) SetProfileLocked(_ context.Context, id uuid.UUID, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return notFound("profile")
	}
	p.IsLocked = locked
	return nil
}

func (m *memDB) DeleteProfile(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return notFound("profile")
	}
	delete(m.profiles, id)
	delete(m.subs, id)
	for iid, img := range m.images {
		if img.UserID == id {
			delete(m.images, iid)
		}
	}
	return nil
}

func (m *memDB) ListUsers(_ context.Context) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserSummary{}
	for _, p := range m.profiles {
		out = append(out, models.UserSummary{Profile: *p})
	}
	return out, nil
}

func (m *memDB) Stats(_ context.Context) (*models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Stats{TotalUsers: len(m.profiles), TotalImages: len(m.images), TotalTickets: len(m.tickets)}
	for _, sub := range m.subs {
		if sub.Plan == "premium" && sub.Status == "active" {
			s.PremiumUsers++
		}
	}
	for _, t := range m.tickets {
		if t.Status != models.TicketClosed {
			s.OpenTickets++
		}
	}
	return s, nil
}

func (m *memDB) GetSubscription(_ context.Context, id uuid.UUID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, notFound("subscription")
	}
	cp := *s
	return &cp, nil
}

func (m *memDB) GetSubscriptionByStripeID(_ context.Context, sid string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == sid {
			cp := *s
			return &cp, nil
		}
	}
	return nil, notFound("subscription")
}

func (m *memDB) ReserveGenerations(_ context.Context, id uuid.UUID, n int, now time.Time) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.Plan != "premium" || (s.Status != "active" && s.Status != "trialing") ||
		(s.CurrentPeriodEnd != nil && !s.CurrentPeriodEnd.After(now)) ||
		s.ImagesGenerated+n > s.ImageLimit {
		return nil, supabase.ErrLimitReached
	}
	s.ImagesGenerated += n
	cp := *s
	return &cp, nil
}

func (m *memDB) ReleaseGenerations(_ context.Context, id uuid.UUID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		s.ImagesGenerated -= n
		if s.ImagesGenerated < 0 {
			s.ImagesGenerated = 0
		}
	}
	return nil
}

func (m *memDB) AddStorage(_ context.Context, id uuid.UUID, bytes, limit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.StorageUsed+bytes > limit {
		return supabase.ErrLimitReached
	}
	s.StorageUsed += bytes
	return nil
}

func (m *memDB) ReleaseStorage(_ context.Context, id uuid.UUID, bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		s.StorageUsed -= bytes
		if s.StorageUsed < 0 {
			s.StorageUsed = 0
		}
	}
	return nil
}

func (m *memDB) ApplyPlan(_ context.Context, id uuid.UUID, c models.PlanChange) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		s = &models.Subscription{ID: uuid.New(), UserID: id}
		m.subs[id] = s
	}
	s.Plan, s.PlanKey, s.Status, s.ImageLimit = c.Plan, c.PlanKey, c.Status, c.ImageLimit
	s.ImagesGenerated = 0
	s.CurrentPeriodStart, s.CurrentPeriodEnd = c.PeriodStart, c.PeriodEnd
	s.CancelAtPeriodEnd = false
	if c.StripeCustomerID != nil {
		s.StripeCustomerID = c.StripeCustomerID
	}
	if c.StripeSubscriptionID != nil {
		s.StripeSubscriptionID = c.StripeSubscriptionID
	}
	cp := *s
	return &cp, nil
}

func (m *memDB) SyncStripeSubscription(_ context.Context, sid, status string, start, end *time.Time, cancel bool) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == sid {
			if !timesEqual(s.CurrentPeriodStart, start) {
				s.ImagesGenerated = 0
			}
			s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd = status, start, end, cancel
			cp := *s
			return &cp, nil
		}
	}
	return nil, notFound("subscription")
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (m *memDB) SetCancelAtPeriodEnd(_ context.Context, id uuid.UUID, cancel bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return notFound("subscription")
	}
	s.CancelAtPeriodEnd = cancel
	return nil
}

func (m *memDB) DowngradeToFree(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return notFound("subscription")
	}
	s.Plan, s.PlanKey, s.Status, s.ImageLimit = "free", "free", "canceled", 0
	s.CancelAtPeriodEnd = false
	s.StripeSubscriptionID = nil
	return nil
}

func (m *memDB) ActivePremiumLimits(_ context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []int{}
	for _, s := range m.subs {
		if s.Plan == "premium" && s.Status == "active" {
			out = append(out, s.ImageLimit)
		}
	}
	return out, nil
}

func (m *memDB) InsertImage(_ context.Context, img *models.GeneratedImage) (*models.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *img
	cp.ID = uuid.New()
	cp.CreatedAt = m.tick()
	m.images[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memDB) GetImage(_ context.Context, id uuid.UUID) (*models.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, notFound("image")
	}
	cp := *img
	return &cp, nil
}

func (m *memDB) GetImageByFileName(_ context.Context, name string) (*models.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		if img.FileName == name {
			cp := *img
			return &cp, nil
		}
	}
	return nil, notFound("image")
}

func (m *memDB) ListImages(_ context.Context, userID uuid.UUID) ([]models.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.GeneratedImage{}
	for _, img := range m.images {
		if img.UserID == userID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memDB) DeleteImage(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return notFound("image")
	}
	delete(m.images, id)
	return nil
}

func (m *memDB) ListImagePaths(_ context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, img := range m.images {
		if img.UserID == userID {
			out = append(out, img.StoragePath)
		}
	}
	return out, nil
}

func (m *memDB) CreateTicket(_ context.Context, userID uuid.UUID, subject, priority, message string) (*models.SupportTicket, *models.SupportMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	t := &models.SupportTicket{ID: uuid.New(), UserID: userID, Subject: subject, Status: models.TicketOpen, Priority: priority, CreatedAt: now, UpdatedAt: now}
	m.tickets[t.ID] = t
	msg := models.SupportMessage{ID: uuid.New(), TicketID: t.ID, SenderID: userID, Message: message, CreatedAt: now}
	m.messages = append(m.messages, msg)
	tc := *t
	return &tc, &msg, nil
}

func (m *memDB) GetTicket(_ context.Context, id uuid.UUID) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, notFound("ticket")
	}
	cp := *t
	return &cp, nil
}

func (m *memDB) ListTickets(_ context.Context, userID *uuid.UUID) ([]models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SupportTicket{}
	for _, t := range m.tickets {
		if userID == nil || t.UserID == *userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memDB) ListMessages(_ context.Context, ticketID uuid.UUID) ([]models.SupportMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SupportMessage{}
	for _, msg := range m.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memDB) AddMessage(_ context.Context, ticketID, senderID uuid.UUID, message string, isAdmin bool, status string) (*models.SupportMessage, *models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, nil, notFound("ticket")
	}
	now := m.tick()
	msg := models.SupportMessage{ID: uuid.New(), TicketID: ticketID, SenderID: senderID, Message: message, IsAdminReply: isAdmin, CreatedAt: now}
	m.messages = append(m.messages, msg)
	if status != "" {
		t.Status = status
	}
	t.UpdatedAt = now
	tc := *t
	return &msg, &tc, nil
}

func (m *memDB) UpdateTicketStatus(_ context.Context, id uuid.UUID, status string) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, notFound("ticket")
	}
	t.Status = status
	t.UpdatedAt = m.tick()
	cp := *t
	return &cp, nil
}

// memStore is an in-memory object store.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return "", s.failWrite
	}
	s.objects[path] = append([]byte(nil), data...)
	return "https://proj.supabase.co/storage/v1/object/public/generated_images/" + path, nil
}

func (s *memStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeGenerator struct {
	data  []byte
	err   error
	calls int
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, req imagegen.Request) (*imagegen.Result, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &imagegen.Result{Data: g.data, ContentType: imagegen.ContentType(req.OutputFormat), Format: req.OutputFormat, Provider: "fake"}, nil
}

type published struct {
	Topic string
	Event string
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(topic, event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, event})
}

func (r *recorder) has(topic, event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Topic == topic && e.Event == event {
			return true
		}
	}
	return false
}

type fakeGateway struct {
	checkout  billing.CheckoutParams
	canceled  string
	event     *billing.Event
	parseErr  error
	state     *billing.SubscriptionState
	createErr error
	cancelErr error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.checkout = p
	return &billing.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/cs_test"}, nil
}

func (g *fakeGateway) CancelAtPeriodEnd(_ context.Context, id string) (*billing.SubscriptionState, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	g.canceled = id
	return &billing.SubscriptionState{ID: id, CancelAtPeriodEnd: true}, nil
}

func (g *fakeGateway) GetSubscription(_ context.Context, id string) (*billing.SubscriptionState, error) {
	if g.state == nil {
		return nil, errors.New("no such subscription")
	}
	return g.state, nil
}

func (g *fakeGateway) ParseEvent(_ []byte, _ string) (*billing.Event, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

type fakeSocial struct {
	req social.ShareRequest
	err error
}

func (f *fakeSocial) Share(_ context.Context, req social.ShareRequest) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return "post_1", nil
}

type fakeFlags struct {
	flags map[string]bool
}

func (f *fakeFlags) ListFeatureFlags(_ context.Context) ([]models.FeatureFlag, error) {
	out := []models.FeatureFlag{}
	for k, v := range f.flags {
		out = append(out, models.FeatureFlag{Feature: k, Enabled: v})
	}
	return out, nil
}

func (f *fakeFlags) SetFeatureFlag(_ context.Context, feature string, enabled bool) (*models.FeatureFlag, error) {
	f.flags[feature] = enabled
	return &models.FeatureFlag{Feature: feature, Enabled: enabled}, nil
}
