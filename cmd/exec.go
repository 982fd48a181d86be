package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nft-ticketing/config"
	"nft-ticketing/internal/handlers"
	"nft-ticketing/internal/ledger"
	"nft-ticketing/internal/services"
	"nft-ticketing/internal/store"
	"nft-ticketing/internal/watcher"
	_ "nft-ticketing/migrations"
	"nft-ticketing/monitoring"
	"nft-ticketing/security"
	"nft-ticketing/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Unsigned webhook callers are a development-only convenience.
	if cfg.Environment != "development" && cfg.WebhookHMACKey == "" {
		return errors.New("WEBHOOK_HMAC_KEY is required outside development")
	}

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	publisher := services.NewPubNubPublisher(pubnub.NewPubNub(pnConfig))

	// Initialize ledger client
	ledgerClient := ledger.NewClient(&ledger.ClientConfig{
		RPCURL:    cfg.LedgerRPCURL,
		SignerURL: cfg.SignerURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown for background tasks
	go handleShutdown(cancel)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	webhookAuth := security.NewWebhookAuth(cfg.WebhookHMACKey)
	verifyLimiter := security.NewRateLimiter(redisClient, cfg.VerifyRateLimit, cfg.VerifyRateWindow)

	if cfg.EnableMetrics {
		monitoring.StartMetricsServer(cfg.MetricsPort)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// The store binds to the app database once it is available.
		st := store.NewStore(app.DB())

		// Initialize services
		reconcileService := services.NewReconcileService(st, publisher)
		verifyService := services.NewVerifyService(st, ledgerClient, publisher)
		eventService := services.NewEventService(st, ledgerClient)

		// Initialize handlers
		eventHandler := handlers.NewEventHandler(eventService, reconcileService, os.Getenv("ADMIN_KEY_HASH"))
		ticketHandler := handlers.NewTicketHandler(reconcileService, verifyService, webhookAuth, verifyLimiter)

		// Start the chain watcher
		if cfg.IssuanceProgram != "" {
			w := watcher.New(
				ledger.NewWSSubscriber(cfg.LedgerWSURL),
				ledgerClient,
				st,
				reconcileService,
				redisClient,
				watcher.ReconnectPolicy{Delay: cfg.WatcherReconnectDelay, MaxAttempts: cfg.WatcherMaxAttempts},
				cfg.IssuanceProgram,
				cfg.SignatureDedupTTL,
			)
			go func() {
				if err := w.Run(ctx); err != nil && ctx.Err() == nil {
					log.Printf("watcher stopped: %v", err)
				}
			}()
		} else {
			log.Println("ISSUANCE_PROGRAM_ID not set, chain watcher disabled")
		}

		// Event endpoints
		e.Router.POST("/api/events", eventHandler.Create)
		e.Router.GET("/api/events", eventHandler.List)
		e.Router.GET("/api/events/{id}", eventHandler.Get)
		e.Router.POST("/api/events/{id}/deactivate", eventHandler.Deactivate)
		e.Router.POST("/api/events/{id}/purchase-initiate", eventHandler.PurchaseInitiate)

		// Ticket endpoints
		e.Router.POST("/api/tickets/mint-success", ticketHandler.MintSuccess)
		e.Router.POST("/api/tickets/transfer-update", ticketHandler.TransferUpdate)
		e.Router.POST("/api/tickets/verify", ticketHandler.Verify)

		// Admin endpoints
		e.Router.GET("/api/admin/stale-transactions", eventHandler.StaleTransactions)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Default to serving on the configured port when no subcommand is
	// given.
	if len(os.Args) < 2 {
		app.RootCmd.SetArgs([]string{"serve", "--http=0.0.0.0:" + cfg.Port})
	}

	return app.Start()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
