// Package main runs the neighbourhood events portal: the HTTP API in front of the event
// management backend, live notifications over WebSocket and graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/neighbourhood-events/portal/config"
	"github.com/neighbourhood-events/portal/internal/analytics"
	"github.com/neighbourhood-events/portal/internal/auth"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/categories"
	"github.com/neighbourhood-events/portal/internal/dashboard"
	"github.com/neighbourhood-events/portal/internal/events"
	"github.com/neighbourhood-events/portal/internal/livesync"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/realtime"
	"github.com/neighbourhood-events/portal/internal/registrations"
	"github.com/neighbourhood-events/portal/internal/reviews"
	"github.com/neighbourhood-events/portal/internal/session"
	"github.com/neighbourhood-events/portal/internal/settings"
	"github.com/neighbourhood-events/portal/internal/users"
	"github.com/neighbourhood-events/portal/pkg/redis"
	"github.com/neighbourhood-events/portal/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	cache := localcache.New(rdb.Client, cfg.Redis.KeyPrefix, cfg.Sync.CacheTTL, logger)
	store := session.NewStore(cache, cfg.Sync.MaxSessions, cfg.Sync.SessionTTL, logger)
	tokens := session.NewTokens(cfg.Session.Secret, cfg.Session.ExpireHours)

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, cfg.Redis.KeyPrefix+":topic:", logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Services
	eventService := events.NewService(api, cache, hub, logger)
	registrationService := registrations.NewService(api, eventService, store, cache, hub, logger)
	categoryService := categories.NewService(api, hub, logger)
	authService := auth.NewService(api, cache, store, tokens, logger)
	analyticsService := analytics.NewService(api, cache, logger)

	// Live refresh: one poller per connected browser, nudged by notifications.
	live := livesync.NewRegistry(registrationService, hub, cfg.Sync.PollInterval, logger)
	defer live.StopAll()
	hub.SetDeliveryHook(func(topic, event string, _ json.RawMessage) {
		switch {
		case event == realtime.EventRegistrationChanged && strings.HasPrefix(topic, "user:"):
			live.ReloadUser(strings.TrimPrefix(topic, "user:"))
		case topic == realtime.TopicCatalog:
			live.ReloadAll()
		}
	})

	// Handlers
	authHandler := auth.NewHandler(authService, cfg.Session.CookieName, cfg.Session.Secure, logger)
	eventHandler := events.NewHandler(eventService, logger)
	registrationHandler := registrations.NewHandler(registrationService, logger)
	categoryHandler := categories.NewHandler(categoryService)
	dashboardHandler := dashboard.NewHandler(registrationService, eventService, analyticsService, logger)
	analyticsHandler := analytics.NewHandler(analyticsService)
	reviewHandler := reviews.NewHandler(reviews.NewService(api, logger))
	settingsHandler := settings.NewHandler(cache, logger)
	userHandler := users.NewHandler(users.NewService(api, cache, logger))

	identify := func(c *gin.Context) (realtime.Identity, bool) {
		u, ok := middleware.CurrentUser(c)
		if !ok {
			return realtime.Identity{}, false
		}
		return realtime.Identity{ClientID: middleware.ClientID(c), Username: u.Username, Role: u.Role}, true
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.Session(tokens, store, cfg.Session.CookieName, cfg.Session.Secure))
	router.Use(middleware.Logger(logger))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) {
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "cache unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Public catalog
	router.GET("/events", eventHandler.Approved)
	router.GET("/categories", categoryHandler.List)

	// Role-dependent pages (redirect / access denied decided by the handler)
	router.GET("/pages/dashboard", dashboardHandler.Show(dashboard.PageDashboard))
	router.GET("/pages/profile", dashboardHandler.Show(dashboard.PageProfile))
	router.GET("/pages/notifications", dashboardHandler.Show(dashboard.PageNotifications))

	// Signed-in API
	signedIn := router.Group("")
	signedIn.Use(middleware.RequireAuth())
	{
		signedIn.GET("/me", authHandler.Me)
		signedIn.PUT("/profile", authHandler.UpdateProfile)

		// Participant views
		signedIn.GET("/me/events", registrationHandler.MyEvents)
		signedIn.GET("/me/browse", registrationHandler.Browse)
		signedIn.GET("/me/calendar", registrationHandler.Calendar)
		signedIn.GET("/me/overview", registrationHandler.Overview)
		signedIn.GET("/events/:id/registration", registrationHandler.Check)
		signedIn.POST("/events/:id/registration", middleware.RequireRole(models.RoleParticipant), registrationHandler.Register)
		signedIn.DELETE("/events/:id/registration", middleware.RequireRole(models.RoleParticipant), registrationHandler.Cancel)
		signedIn.POST("/reviews", middleware.RequireRole(models.RoleParticipant), reviewHandler.Submit)

		// Organizer
		signedIn.POST("/events", middleware.RequireRole(models.RoleOrganizer), eventHandler.Create)
		signedIn.GET("/organizer/events", middleware.RequireRole(models.RoleOrganizer), eventHandler.Mine)
		signedIn.PUT("/events/:id", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), eventHandler.Update)
		signedIn.DELETE("/events/:id", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), eventHandler.Delete)
		signedIn.GET("/organizer/registrations", middleware.RequireRole(models.RoleOrganizer), registrationHandler.ForOrganizer)
		signedIn.GET("/events/:id/registrations", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), registrationHandler.ForEvent)
	}

	// Admin
	admin := router.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/events", eventHandler.All)
		admin.GET("/events/pending", eventHandler.Pending)
		admin.PUT("/events/:id/status", eventHandler.SetStatus)
		admin.POST("/categories", categoryHandler.Add)
		admin.DELETE("/categories/:name", categoryHandler.Remove)
		admin.GET("/settings", settingsHandler.Get)
		admin.PUT("/settings", settingsHandler.Update)
		admin.POST("/settings/reset", settingsHandler.Reset)
		admin.GET("/users", userHandler.List)
		admin.GET("/analytics", analyticsHandler.Get)
	}

	// WebSocket (session cookie, Bearer header or ?token=)
	router.GET("/ws", realtime.ServeWs(hub, logger, identify, live))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
