package models

type UpdateProfileRequest struct {
	Name     string  `json:"name" example:"Jane Doe"`
	Username string  `json:"username" example:"jane_1a2b3c4d"`
	Bio      *string `json:"bio,omitempty" example:"Painting with prompts"`
	Website  *string `json:"website,omitempty" example:"https://jane.example.com"`
}

// DeleteAccountRequest must repeat the account email to confirm deletion.
type DeleteAccountRequest struct {
	ConfirmEmail string `json:"confirm_email" binding:"required" example:"jane@example.com"`
}

type CheckoutRequest struct {
	// Plan is a paid plan key from the catalog: basic, monthly or yearly.
	Plan string `json:"plan" binding:"required" example:"monthly"`
}

type GenerateRequest struct {
	Prompt         string   `json:"prompt" example:"a lighthouse at dusk, oil painting"`
	Style          string   `json:"style,omitempty" example:"cinematic"`
	Model          string   `json:"model,omitempty" example:"sd3.5-large-turbo"`
	AspectRatio    string   `json:"aspect_ratio,omitempty" example:"16:9"`
	OutputFormat   string   `json:"output_format,omitempty" example:"jpeg"`
	CfgScale       *float64 `json:"cfg_scale,omitempty" example:"7.5"`
	NegativePrompt *string  `json:"negative_prompt,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
}

type ShareRequest struct {
	Platform    string `json:"platform" binding:"required" example:"facebook"`
	ImageURL    string `json:"image_url" binding:"required"`
	Caption     string `json:"caption"`
	AccessToken string `json:"access_token" binding:"required"`
}

type CreateTicketRequest struct {
	Subject  string `json:"subject" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority,omitempty" example:"medium"`
}

type ReplyRequest struct {
	Message string `json:"message" binding:"required"`
}

type UpdateTicketRequest struct {
	Status string `json:"status" binding:"required" example:"closed"`
}

type SetPlanRequest struct {
	Plan string `json:"plan" binding:"required" example:"yearly"`
}

type LockUserRequest struct {
	Locked bool `json:"locked"`
}

type FeatureFlagRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
