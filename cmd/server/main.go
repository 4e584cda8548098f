// @title           Card Print Backend API
// @version         1.0.0
// @description     Backend API for the trading card print storefront. Handles card image uploads, checkout session creation, payment webhooks and order status.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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
	"github.com/redis/go-redis/v9"

	"cardprint-backend/internal/config"
	"cardprint-backend/internal/database"
	"cardprint-backend/internal/events"
	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/ledger"
	"cardprint-backend/internal/logger"
	"cardprint-backend/internal/middleware"
	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/services"
	"cardprint-backend/internal/supabase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "development")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Supabase client")
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage client")
	}

	checks := map[string]handlers.Pinger{}

	// With DATABASE_URL the schema is migrated and orders go over SQL;
	// otherwise the PostgREST API is used against an existing schema.
	var orders services.OrderRepository
	var eventLedger ledger.Ledger
	if cfg.DatabaseURL != "" {
		dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database client")
		}
		defer dbClient.Close()

		migrator := database.NewMigratorFromDB(dbClient.DB(), log)
		if err := migrator.Run(); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		log.Info().Msg("Migrations completed successfully")

		orders = dbClient
		eventLedger = database.NewWebhookEvents(dbClient.DB())
		checks["database"] = dbClient
	} else {
		log.Warn().Msg("DATABASE_URL not set, using the Supabase REST API for orders")
		orders = supabase.NewRestOrderStore(supabaseClient)
		eventLedger = supabase.NewRestWebhookEvents(supabaseClient)
		checks["supabase"] = supabaseClient
	}

	if cfg.RedisURL != "" {
		redisClient, err := ledger.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, webhook ledger lookups are uncached")
		} else {
			defer redisClient.Close()
			eventLedger = ledger.NewCacheAside(eventLedger, redisClient, log)
			checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
				return pingRedis(ctx, redisClient)
			})
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPublishTimeout, log)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing order events to Kafka")
	}
	defer publisher.Close()

	gateway := payment.NewStripeClient(cfg.StripeAPIBaseURL, cfg.StripeSecretKey)

	storageService := services.NewStorageService(storageClient, cfg.UploadConcurrency, log)
	checkoutService := services.NewCheckoutService(gateway, orders, storageService, publisher, cfg.PublicOrigin, log)
	confirmationService := services.NewConfirmationService(orders, eventLedger, publisher, log)

	uploadHandler := handlers.NewUploadHandler(storageService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, log)
	webhookHandler := handlers.NewWebhookHandler(cfg, payment.NewVerifier(), confirmationService, log)
	ordersHandler := handlers.NewOrdersHandler(orders)
	readinessHandler := handlers.NewReadinessHandler(checks)

	router := gin.New()
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", handlers.HealthHandler)
	router.GET("/ready", readinessHandler.Ready)

	api := router.Group("/api/v1")
	api.POST("/upload-images", middleware.MaxBodyBytes(cfg.MaxCheckoutBodyBytes), uploadHandler.Upload)
	api.POST("/checkout", middleware.MaxBodyBytes(cfg.MaxCheckoutBodyBytes), checkoutHandler.CreateCheckout)
	api.POST("/quote", handlers.QuoteHandler)
	api.POST("/images/bleed", middleware.MaxBodyBytes(cfg.MaxCheckoutBodyBytes), handlers.BleedHandler)
	api.POST("/images/mask", middleware.MaxBodyBytes(cfg.MaxCheckoutBodyBytes), handlers.MaskHandler)
	api.GET("/orders/:session_id/status", ordersHandler.GetStatus)

	// Webhook (no auth, uses the signature header)
	api.POST("/webhooks/stripe", webhookHandler.HandleWebhook)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole("admin", "service_role"))
	admin.GET("/orders/:session_id", ordersHandler.GetOrder)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
