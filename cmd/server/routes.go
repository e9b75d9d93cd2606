package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/config"
	"naxovate-backend/internal/handlers"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/middleware"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/services"
	"naxovate-backend/internal/supabase"
)

type application struct {
	cfg *config.Config
	log logrus.FieldLogger
	db  *supabase.DatabaseClient
	hub *realtime.Hub

	profiles   *services.ProfileService
	generation *services.GenerationService
	gallery    *services.GalleryService
	billing    *services.BillingService
	support    *services.SupportService
	admin      *services.AdminService
	share      *services.ShareService
	accounts   *services.AccountService

	generateLimiter *middleware.UserRateLimiter
}

func (a *application) ensureProfile(ctx context.Context, userID uuid.UUID, email string, metadata map[string]interface{}) (*models.Profile, error) {
	return a.profiles.Ensure(ctx, services.Identity{UserID: userID, Email: email, Metadata: metadata})
}

func (a *application) routes() *gin.Engine {
	healthHandler := handlers.NewHealthHandler(a.db)
	profileHandler := handlers.NewProfileHandler(a.profiles, a.accounts, a.log)
	subscriptionHandler := handlers.NewSubscriptionHandler(a.profiles, a.billing, a.log)
	imagesHandler := handlers.NewImagesHandler(a.generation, a.gallery, a.log)
	shareHandler := handlers.NewShareHandler(a.share, a.log)
	supportHandler := handlers.NewSupportHandler(a.support, a.hub, a.log)
	adminHandler := handlers.NewAdminHandler(a.admin, a.support, a.hub, a.log)
	publicHandler := handlers.NewPublicImageHandler(a.gallery, a.log)
	webhookHandler := handlers.NewWebhookHandler(a.billing, a.log)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	// Health check and metrics (no auth)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Branded image links (no auth)
	router.GET("/api/image", publicHandler.Image)
	router.GET("/api/download", publicHandler.Download)
	router.GET("/api/share", publicHandler.Share)

	// Webhook (no auth, uses the Stripe signature)
	router.POST("/api/v1/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.cfg))

	// Profile and subscription
	api.GET("/profile", profileHandler.GetProfile)
	api.PUT("/profile", profileHandler.UpdateProfile)
	api.DELETE("/profile", profileHandler.DeleteAccount)
	api.POST("/profile/avatar", profileHandler.UploadAvatar)
	api.POST("/profile/cover", profileHandler.UploadCover)
	api.GET("/subscription", subscriptionHandler.GetSubscription)
	api.GET("/subscription/plans", subscriptionHandler.ListPlans)
	api.POST("/subscription/checkout", subscriptionHandler.Checkout)
	api.POST("/subscription/cancel", subscriptionHandler.Cancel)

	// Generation and gallery
	api.GET("/generate/options", imagesHandler.GenerateOptions)
	api.POST("/images/generate", a.generateLimiter.Middleware(), imagesHandler.Generate)
	api.GET("/images", imagesHandler.ListImages)
	api.GET("/images/:image_id", imagesHandler.GetImage)
	api.DELETE("/images/:image_id", imagesHandler.DeleteImage)
	api.POST("/images/:image_id/edit", imagesHandler.EditImage)

	api.POST("/share", shareHandler.Share)

	// Support
	api.POST("/support/tickets", supportHandler.CreateTicket)
	api.GET("/support/tickets", supportHandler.ListTickets)
	api.GET("/support/tickets/:ticket_id/messages", supportHandler.ListMessages)
	api.POST("/support/tickets/:ticket_id/messages", supportHandler.Reply)
	api.GET("/support/tickets/:ticket_id/stream", supportHandler.Stream)

	// Admin console
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin(a.ensureProfile, a.log))
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:user_id/subscription", adminHandler.SetPlan)
	admin.DELETE("/users/:user_id", adminHandler.DeleteUser)
	admin.POST("/users/:user_id/lock", adminHandler.LockUser)
	admin.PATCH("/tickets/:ticket_id", adminHandler.UpdateTicket)
	admin.GET("/feature-flags", adminHandler.ListFeatureFlags)
	admin.PUT("/feature-flags/:feature", adminHandler.SetFeatureFlag)
	admin.GET("/events", adminHandler.Events)

	return router
}
