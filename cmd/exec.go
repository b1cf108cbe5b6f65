package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-gate/config"
	"wedding-gate/internal/flow"
	"wedding-gate/internal/handlers"
	"wedding-gate/internal/services"
	_ "wedding-gate/migrations"
	"wedding-gate/models"
	"wedding-gate/monitoring"
	"wedding-gate/security"
	"wedding-gate/utils"
)

const shutdownTimeout = 10 * time.Second

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.LogLevel, cfg.Environment)
	log := utils.Component(logger, "server")

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, logger)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := monitoring.NewMonitor(nil, logger)

	breakerSettings := utils.DefaultBreakerSettings
	breakerSettings.OnStateChange = monitor.TrackBreaker
	unlockBreaker := utils.NewCircuitBreakerWithSettings("redis-unlocks", breakerSettings)

	runner := flow.NewRunner(cfg.PersistenceTimeout, monitor.RecordFailure)
	notifier := services.NewNotifier(services.NewPubNubPublisher(cfg), cfg.GalleryURLTemplate, logger)
	rateLimiter := security.NewRateLimiter(redisClient, logger)
	staffAuth := security.NewStaffAuth(cfg.StaffKeyHash)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})
	app.RootCmd.AddCommand(newStaffKeyCommand())

	setupWeddingHooks(app, logger)

	var sessionService *services.SessionService

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		db := app.DB()

		weddingRepo := services.NewWeddingRepository(db, cfg.Location(), logger)
		venueRepo := services.NewVenueRepository(db, cfg.DefaultRatingThreshold)
		reviewRepo := services.NewReviewRepository(db)

		sessionService = services.NewSessionService(cfg, services.SessionDeps{
			Weddings:    weddingRepo,
			Venues:      venueRepo,
			Unlocks:     services.NewRedisUnlockStore(redisClient, unlockBreaker, logger),
			Submissions: reviewRepo,
			Runner:      runner,
			Navigator:   notifier,
			Opener:      notifier,
			Events:      flow.MultiSink{monitor, notifier},
			OnLookup:    monitor.TrackWeddingLookup,
		}, logger)
		monitor.Watch(sessionService)

		if cfg.IsDevelopment() {
			if err := seedDevelopmentData(app, cfg.Location(), logger); err != nil {
				log.Warn().Err(err).Msg("failed to seed development data")
			}
		}

		// Start background tasks
		go notifier.Run(ctx)
		go monitor.Run(ctx)
		go sessionService.CleanupExpiredSessions(ctx)

		weddingHandler := handlers.NewWeddingHandler(sessionService)
		guestHandler := handlers.NewGuestHandler(sessionService, notifier.GalleryURL, logger)
		staffHandler := handlers.NewStaffHandler(weddingRepo, venueRepo, reviewRepo, logger)

		// Entry selector
		se.Router.GET("/api/v1/venues/{venueId}/weddings/today", weddingHandler.ListToday).
			BindFunc(rateLimiter.AntiBot)

		// Guest sessions
		se.Router.POST("/api/v1/sessions", guestHandler.CreateSession).
			BindFunc(rateLimiter.AntiBot)
		sessions := se.Router.Group("/api/v1/sessions/{sessionId}")
		sessions.GET("", guestHandler.GetSession)
		sessions.POST("/passcode/digits", guestHandler.AppendDigit)
		sessions.DELETE("/passcode/digits", guestHandler.DeleteDigit)
		sessions.POST("/back", guestHandler.Back)
		sessions.POST("/review/rating", guestHandler.SetRating)
		sessions.POST("/review/feedback", guestHandler.SetFeedback)
		sessions.POST("/review/confirm", guestHandler.Confirm)
		sessions.POST("/review/submit", guestHandler.Submit)

		// Staff endpoints
		staff := se.Router.Group("/api/v1/staff")
		staff.BindFunc(staffAuth.Require)
		staff.GET("/weddings/{weddingId}/reviews/summary", staffHandler.ReviewSummary)

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		se.Router.GET("/health", healthHandler(redisClient, sessionService))

		log.Info().Msg("server routes registered")
		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		log.Info().Msg("shutdown signal received, cleaning up")
		cancel()

		if sessionService != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			if err := sessionService.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("sessions did not shut down cleanly")
			}
		}
		return e.Next()
	})

	// Start server
	return app.Start()
}

func healthHandler(redisClient *redis.Client, sessions *services.SessionService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			// unlock records fail open, so the gate keeps working without redis
			return e.JSON(http.StatusOK, map[string]any{
				"status":   "degraded",
				"redis":    err.Error(),
				"sessions": sessions.Count(),
			})
		}
		return e.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"sessions": sessions.Count(),
		})
	}
}

// setupWeddingHooks fills in a passcode for weddings created without one.
func setupWeddingHooks(app *pocketbase.PocketBase, logger zerolog.Logger) {
	log := utils.Component(logger, "hooks")

	app.OnRecordCreate("weddings").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("passcode") != "" {
			return e.Next()
		}

		code, err := utils.GeneratePasscode(models.PasscodeLength)
		if err != nil {
			return err
		}
		e.Record.Set("passcode", code)
		log.Info().Str("venue_id", e.Record.GetString("venue")).Msg("generated passcode for new wedding")
		return e.Next()
	})
}
