// @title           NaxoVate Backend API
// @version         1.0.0
// @description     Backend API for NaxoVate: AI image generation with credit quotas, a filter editor, branded share links, Stripe subscriptions, social sharing, support tickets and an admin console.

// @contact.name   API Support
// @contact.email  support@naxovate.app

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Supabase JWT.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/billing"
	"naxovate-backend/internal/branding"
	"naxovate-backend/internal/config"
	"naxovate-backend/internal/database"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/jobs"
	"naxovate-backend/internal/middleware"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/services"
	"naxovate-backend/internal/social"
	"naxovate-backend/internal/storage"
	"naxovate-backend/internal/supabase"
	"naxovate-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := plans.Load(cfg.PlansFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load plan catalog")
	}

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbClient.Close()

	if err := database.NewMigrator(dbClient.DB(), log).Run(); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.Info("Migrations completed successfully")

	objects, err := newObjectStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize object storage")
	}

	generator := newGenerator(cfg)

	// PostgREST only backs the feature flag editor; the API runs without it.
	var flags services.FeatureFlagStore
	if restClient, err := supabase.NewClient(cfg); err != nil {
		log.WithError(err).Warn("Supabase REST client unavailable, feature flags disabled")
	} else {
		flags = restClient
	}

	var gateway services.PaymentGateway
	if stripeGateway, err := billing.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret); err != nil {
		log.WithError(err).Warn("Stripe not configured, billing disabled")
	} else {
		gateway = stripeGateway
	}

	hub := realtime.NewHub(64)
	urls := branding.NewURLs(cfg.PublicBaseURL)

	profileService := services.NewProfileService(dbClient, dbClient, catalog, cfg.AdminEmail, hub, log)
	app := &application{
		cfg:      cfg,
		log:      log,
		db:       dbClient,
		hub:      hub,
		profiles: profileService,
		generation: services.NewGenerationService(
			profileService, dbClient, dbClient, objects, generator, catalog, urls, hub, cfg.GenerationTimeout, log,
		),
		gallery: services.NewGalleryService(profileService, dbClient, dbClient, objects, urls, hub, log),
		billing: services.NewBillingService(profileService, dbClient, gateway, catalog, cfg.PublicBaseURL, hub, log),
		support: services.NewSupportService(profileService, dbClient, hub, log),
		admin:   services.NewAdminService(dbClient, dbClient, dbClient, objects, flags, catalog, hub, log),
		share:   services.NewShareService(profileService, social.NewGraphClient(cfg.GraphAPIBaseURL), log),
		accounts: services.NewAccountService(
			profileService, dbClient, dbClient, dbClient, objects, gateway, hub, log,
		),

		generateLimiter: middleware.NewUserRateLimiter(cfg.GenerateRatePerMin, cfg.GenerateRateBurst),
	}

	rollover := jobs.NewPeriodRollover(dbClient, hub, log)
	scheduler, err := jobs.NewScheduler(cfg.PeriodResetSchedule, rollover, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule period rollover")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catch up on periods that ended while the server was down.
	if err := rollover.RunOnce(ctx); err != nil {
		log.WithError(err).Warn("Initial period rollover failed")
	}
	scheduler.Start()
	app.generateLimiter.StartCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":      cfg.Port,
			"provider":  generator.Name(),
			"storage":   cfg.StorageBackend,
			"bucket":    cfg.SupabaseStorageBucket,
			"billing":   gateway != nil,
			"flags":     flags != nil,
			"env":       cfg.Environment,
			"plans":     len(catalog.Plans),
			"scheduler": cfg.PeriodResetSchedule,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func newObjectStore(cfg *config.Config) (services.ObjectStore, error) {
	if cfg.StorageBackend == "s3" {
		s3Store, err := storage.NewS3Store(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if err != nil {
		return nil, err
	}
	return storageClient, nil
}

func newGenerator(cfg *config.Config) imagegen.Generator {
	if cfg.ImageProvider == imagegen.ProviderOpenAI {
		return imagegen.NewOpenAIGenerator(cfg.OpenAIAPIKey)
	}
	return imagegen.NewStabilityClient(cfg.StabilityAPIBaseURL, cfg.StabilityAPIKey, cfg.GenerationTimeout)
}
