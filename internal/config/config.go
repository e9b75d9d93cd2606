package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseJWTSecret     string
	SupabaseStorageBucket string

	// Database
	DatabaseURL string

	// Object storage
	StorageBackend string // "supabase" or "s3"
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3PublicURL    string
	S3UsePathStyle bool

	// Image generation
	ImageProvider       string // "stability" or "openai"
	StabilityAPIKey     string
	StabilityAPIBaseURL string
	OpenAIAPIKey        string
	GenerationTimeout   time.Duration
	GenerateRatePerMin  int
	GenerateRateBurst   int

	// Billing
	StripeSecretKey     string
	StripeWebhookSecret string
	PlansFile           string

	// Social sharing
	GraphAPIBaseURL string

	// Admin
	AdminEmail string

	// Jobs
	PeriodResetSchedule string

	// Server
	Port          string
	Environment   string
	PublicBaseURL string
	LogLevel      string
}

func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		SupabaseURL:           strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseJWTSecret:     getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "generated_images"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "supabase")),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Region:       getEnv("S3_REGION", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3PublicURL:    getEnv("S3_PUBLIC_BASE_URL", ""),
		S3UsePathStyle: getBool("S3_USE_PATH_STYLE", true),

		ImageProvider:       strings.ToLower(getEnv("IMAGE_PROVIDER", "stability")),
		StabilityAPIKey:     getEnv("STABILITY_API_KEY", ""),
		StabilityAPIBaseURL: getEnv("STABILITY_API_BASE_URL", "https://api.stability.ai"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GenerationTimeout:   getDuration("GENERATION_TIMEOUT", 90*time.Second),
		GenerateRatePerMin:  getInt("GENERATE_RATE_PER_MINUTE", 6),
		GenerateRateBurst:   getInt("GENERATE_RATE_BURST", 3),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PlansFile:           getEnv("PLANS_FILE", ""),

		GraphAPIBaseURL: getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v16.0"),

		AdminEmail: strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),

		PeriodResetSchedule: getEnv("PERIOD_RESET_SCHEDULE", "@hourly"),

		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.StorageBackend {
	case "supabase":
	case "s3":
		var missing []string
		if c.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if c.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if c.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if c.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if c.S3PublicURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
		if len(missing) > 0 {
			return fmt.Errorf("s3 storage backend requires %v", missing)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be supabase or s3, got %q", c.StorageBackend)
	}

	switch c.ImageProvider {
	case "stability":
		if c.StabilityAPIKey == "" {
			return fmt.Errorf("STABILITY_API_KEY is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("IMAGE_PROVIDER must be stability or openai, got %q", c.ImageProvider)
	}

	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.GenerateRatePerMin <= 0 {
		return fmt.Errorf("GENERATE_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// loadEnvFile loads a .env file when one is present. A missing file is not an
// error: production deployments set real environment variables.
func loadEnvFile() error {
	path := ".env"
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		path = custom
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("access env file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
