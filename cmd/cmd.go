package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchchat-backend/internal/cache"
	"matchchat-backend/internal/config"
	"matchchat-backend/internal/handlers"
	"matchchat-backend/internal/metrics"
	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/push"
	"matchchat-backend/internal/repository"
	"matchchat-backend/internal/services"
	"matchchat-backend/migrations"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the store
	store := openStore(ctx, cfg)
	defer store.Close()

	m := metrics.Registry("matchchat")

	// Super-like budget: Redis when configured, in-process otherwise
	var budget services.RateBudget
	if cfg.Redis.Addr != "" {
		client := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx, client); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		defer client.Close()
		budget = services.NewRedisBudget(client, cfg.Swipes.DailySuperLikes)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	} else {
		mem := services.NewMemoryBudget(cfg.Swipes.DailySuperLikes)
		mem.StartSweep(ctx)
		budget = mem
		log.Warn().Msg("Redis not configured, using in-process super-like budget")
	}

	notifier := buildNotifier(cfg, m)

	// Initialize services
	hub := services.NewWSHub(m)
	tokens := services.NewTokenService(cfg.JWT.Secret)
	presence := services.NewPresenceTracker(store.Matches(), hub, cfg.Presence.GraceDelay)
	matchService := services.NewMatchService(store.Matches(), store.Conversations(), store.Swipes(), hub, notifier, m)
	swipeService := services.NewSwipeService(
		store.Swipes(), store.Matches(), store.Blocks(),
		budget, matchService,
		services.NewStaticEntitlements(cfg.Swipes.UndoUserIDs), m,
	)
	chatService := services.NewChatService(
		store.Conversations(), store.Messages(), store.Blocks(),
		hub, notifier, cfg.Chat, m,
	)
	blockService := services.NewBlockService(store.Blocks(), matchService)

	// Initialize handlers
	swipeHandler := handlers.NewSwipeHandler(swipeService)
	matchHandler := handlers.NewMatchHandler(matchService)
	chatHandler := handlers.NewChatHandler(chatService)
	blockHandler := handlers.NewBlockHandler(blockService)
	wsHandler := handlers.NewWebSocketHandler(hub, tokens, presence, chatService, cfg.Chat.MuteSuppressesTyping)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens))

		r.Post("/swipes", swipeHandler.RecordSwipe)
		r.Post("/swipes/undo", swipeHandler.UndoSwipe)

		r.Get("/matches", matchHandler.ListMatches)
		r.Post("/matches/{match_id}/seen", matchHandler.MarkSeen)
		r.Delete("/matches/{match_id}", matchHandler.Unmatch)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", chatHandler.ListConversations)
			r.Get("/{conversation_id}", chatHandler.GetConversation)
			r.Get("/{conversation_id}/messages", chatHandler.ListMessages)
			r.Post("/{conversation_id}/messages", chatHandler.SendMessage)
			r.Put("/{conversation_id}/messages/{message_id}", chatHandler.EditMessage)
			r.Delete("/{conversation_id}/messages/{message_id}", chatHandler.DeleteMessage)
			r.Put("/{conversation_id}/messages/{message_id}/reaction", chatHandler.React)
			r.Post("/{conversation_id}/messages/{message_id}/pin", chatHandler.PinMessage)
			r.Delete("/{conversation_id}/messages/{message_id}/pin", chatHandler.UnpinMessage)
			r.Put("/{conversation_id}/mute", chatHandler.MuteConversation)
			r.Post("/{conversation_id}/read", chatHandler.MarkRead)
		})

		r.Post("/blocks/{user_id}", blockHandler.BlockUser)
		r.Delete("/blocks/{user_id}", blockHandler.UnblockUser)
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore connects the configured store backend.
func openStore(ctx context.Context, cfg *config.Config) repository.Store {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data will not survive restarts")
		return repository.NewMemory()
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	if err := repository.ApplyMigrations(ctx, db, migrations.Files); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Msg("Database connection established")
	return repository.NewPostgres(db)
}

// buildNotifier wires APNs when a certificate is configured. Device tokens
// come from the configured registry table.
func buildNotifier(cfg *config.Config, m *metrics.Metrics) push.Notifier {
	if cfg.APNs.CertFile == "" {
		return push.Noop{}
	}
	notifier, err := push.NewAPNs(
		cfg.APNs.CertFile, cfg.APNs.CertPass, cfg.APNs.Topic, cfg.APNs.Production,
		push.StaticTokens(cfg.APNs.DeviceTokens), m,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create APNs client")
	}
	return notifier
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
