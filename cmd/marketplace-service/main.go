package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solden-marketplace-service/internal/adapters/broadcaster"
	"solden-marketplace-service/internal/adapters/db"
	"solden-marketplace-service/internal/adapters/redis"
	"solden-marketplace-service/internal/adapters/rest"
	"solden-marketplace-service/internal/adapters/scheduler"
	"solden-marketplace-service/internal/adapters/storage"
	"solden-marketplace-service/internal/adapters/ws"
	"solden-marketplace-service/internal/app"
	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Solden Marketplace Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)
	auctionRepo := repoFactory.GetAuctionRepository()
	bidRepo := repoFactory.GetBidRepository()
	chatRepo := repoFactory.GetChatRepository()
	userRepo := repoFactory.GetUserRepository()
	categoryRepo := repoFactory.GetCategoryRepository()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis broadcaster initialized")

	// Create blob storage
	blobStore, err := storage.NewFromConfig(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}

	// Create authentication gate
	gate := auth.NewGate(auth.GateParams{
		Secret:   cfg.Auth.JWTSecret,
		UserRepo: userRepo,
		Logger:   log.Logger,
	})

	// Create business services
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo:  auctionRepo,
		BidRepo:      bidRepo,
		UserRepo:     userRepo,
		CategoryRepo: categoryRepo,
		BlobStore:    blobStore,
		Broadcaster:  redisBroadcaster,
		PageSize:     cfg.Pagination.Auctions,
		Logger:       log.Logger,
	})
	chatService := app.NewChatService(app.ChatServiceParams{
		ChatRepo:     chatRepo,
		UserRepo:     userRepo,
		AuctionRepo:  auctionRepo,
		BidRepo:      bidRepo,
		CategoryRepo: categoryRepo,
		BlobStore:    blobStore,
		Broadcaster:  redisBroadcaster,
		ConvPageSize: cfg.Pagination.Conversations,
		MsgPageSize:  cfg.Pagination.Messages,
		Logger:       log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create auction scheduler
	auctionScheduler := scheduler.NewAuctionScheduler(
		scheduler.AuctionSchedulerParams{
			RedisClient:    redisClient,
			AuctionService: auctionService,
			Logger:         log.Logger,
		},
	)

	// Start auction scheduler
	auctionScheduler.Start()
	log.Info().Msg("Auction scheduler started")

	// Update auction service with scheduler
	auctionService.SetScheduler(auctionScheduler)

	gateway := ws.NewGateway(ws.GatewayParams{
		Config:         cfg,
		Gate:           gate,
		AuctionService: auctionService,
		ChatService:    chatService,
		Broadcaster:    redisBroadcaster,
		Logger:         log.Logger,
	})

	restServer := rest.NewServer(rest.ServerParams{
		Config:       cfg,
		Gate:         gate,
		Gateway:      gateway,
		ChatService:  chatService,
		CategoryRepo: categoryRepo,
		Logger:       log.Logger,
	})

	log.Info().Msg("HTTP server initialized")

	// Start HTTP server
	go func() {
		if err := restServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop auction scheduler
	auctionScheduler.Stop()
	log.Info().Msg("Auction scheduler stopped")

	// Stop HTTP server
	if err := restServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	// Close broadcaster subscriptions
	redisBroadcaster.Close()

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
