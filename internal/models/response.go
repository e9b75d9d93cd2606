package models

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type ProfileResponse struct {
	Profile      Profile              `json:"profile"`
	Subscription SubscriptionResponse `json:"subscription"`
}

type SubscriptionResponse struct {
	PlanKey              string        `json:"plan_key"`
	Tier                 string        `json:"tier"`
	Status               string        `json:"status"`
	Active               bool          `json:"active"`
	Unlimited            bool          `json:"unlimited"`
	CanGenerate          bool          `json:"can_generate"`
	ImagesGenerated      int           `json:"images_generated"`
	ImageLimit           int           `json:"image_limit"`
	RemainingGenerations int           `json:"remaining_generations"`
	StorageUsed          int64         `json:"storage_used"`
	StorageLimit         int64         `json:"storage_limit"`
	RemainingStorage     int64         `json:"remaining_storage"`
	CancelAtPeriodEnd    bool          `json:"cancel_at_period_end"`
	Subscription         *Subscription `json:"subscription,omitempty"`
}

type ImageResponse struct {
	GeneratedImage
	DisplayURL  string `json:"display_url"`
	ShareURL    string `json:"share_url"`
	DownloadURL string `json:"download_url"`
}

type ImageListResponse struct {
	Images []ImageResponse `json:"images"`
}

type GenerateResponse struct {
	Image                ImageResponse `json:"image"`
	RemainingGenerations int           `json:"remaining_generations"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type ShareResponse struct {
	Platform string `json:"platform"`
	PostID   string `json:"post_id"`
}

type TicketListResponse struct {
	Tickets []SupportTicket `json:"tickets"`
}

type TicketResponse struct {
	Ticket   SupportTicket    `json:"ticket"`
	Messages []SupportMessage `json:"messages,omitempty"`
}

type MessageListResponse struct {
	Messages []SupportMessage `json:"messages"`
}

type UserListResponse struct {
	Users []UserSummary `json:"users"`
}

type FeatureFlagListResponse struct {
	Flags []FeatureFlag `json:"flags"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers          int   `db:"total_users" json:"total_users"`
	PremiumUsers        int   `db:"premium_users" json:"premium_users"`
	TotalImages         int   `db:"total_images" json:"total_images"`
	OpenTickets         int   `db:"open_tickets" json:"open_tickets"`
	TotalTickets        int   `db:"total_tickets" json:"total_tickets"`
	MonthlyRevenueCents int64 `json:"monthly_revenue_cents"`
}
