package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"

	"github.com/etraincon/learning-service/internal/cache"
	"github.com/etraincon/learning-service/internal/config"
	"github.com/etraincon/learning-service/internal/events"
	"github.com/etraincon/learning-service/internal/filestore"
	"github.com/etraincon/learning-service/internal/handlers"
	"github.com/etraincon/learning-service/internal/mail"
	"github.com/etraincon/learning-service/internal/quizgen"
	"github.com/etraincon/learning-service/internal/repositories/postgres"
	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/sessions"
	"github.com/etraincon/learning-service/internal/utils"
	"github.com/etraincon/learning-service/internal/validator"
	"github.com/etraincon/learning-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Sessions
	sessionManager, err := newSessionManager(cfg, redisClient, logger)
	if err != nil {
		log.Fatalf("Failed to initialize sessions: %v", err)
	}

	// Mail
	mailer, err := mail.NewClient(cfg.Mail, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize mail client: %v", err)
	}

	// Events
	pubSub, err := events.NewPubSub(cfg.Events, events.NewLogger(slogLogger))
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	eventHandlers := append(
		events.NewMailWorker(mailer, cfg.SiteURL, slogLogger).Handlers(),
		events.NewAuditHandler(slogLogger).Handlers()...,
	)
	eventRouter, err := events.NewRouter(pubSub, slogLogger, eventHandlers...)
	if err != nil {
		log.Fatalf("Failed to initialize event router: %v", err)
	}
	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()
	go func() {
		if err := eventRouter.Run(routerCtx); err != nil {
			logger.Error("Event router stopped", "error", err)
		}
	}()

	// Course files
	files, err := filestore.NewLocalStorage(cfg.Storage.CourseFilesDir)
	if err != nil {
		log.Fatalf("Failed to initialize course file storage: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager, services.Dependencies{
		Mailer:    mailer,
		Publisher: events.NewWatermillPublisher(pubSub.Publisher, slogLogger),
		Generator: quizgen.NewClient(cfg.QuizAPI, slogLogger),
		Files:     files,
		Validator: validator.New(),
		Logger:    slogLogger,
	}, services.ServiceManagerConfig{
		SiteURL: cfg.SiteURL,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, sessionManager, logger, handlers.HandlerConfig{
		LoginURL:                cfg.SiteURL + "/login",
		AllowTestIdentityHeader: cfg.Session.AllowTestIdentityHeader,
	})

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORS.AllowedOrigins)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop consuming events. Handlers already running get the router's close timeout;
	// events not yet consumed from the in-process bus are lost.
	stopRouter()
	if err := eventRouter.Close(); err != nil {
		logger.Error("Failed to close event router", "error", err)
	}
	if err := pubSub.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}

// newSessionManager stores sessions in Redis when available and in the signed cookie
// itself otherwise.
func newSessionManager(cfg *config.Config, redisClient *redis.Client, logger utils.Logger) (*sessions.Manager, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		// LoadConfig rejects this in production.
		logger.Warn("SESSION_HASH_KEY not set, using a random key; sessions will not survive a restart")
		hashKey = securecookie.GenerateRandomKey(64)
		if hashKey == nil {
			return nil, fmt.Errorf("failed to generate session key")
		}
	}
	keyPair := [][]byte{hashKey}
	if cfg.Session.BlockKey != "" {
		keyPair = append(keyPair, []byte(cfg.Session.BlockKey))
	}

	options := sessions.CookieOptions(cfg.Session.MaxAge, cfg.Session.Secure)

	var store gsessions.Store
	if redisClient != nil {
		helper := cache.NewCacheHelper(redisClient, cache.SessionCacheConfig.Prefix)
		store = sessions.NewRedisStore(helper, options, keyPair...)
	} else {
		cookieStore := gsessions.NewCookieStore(keyPair...)
		cookieStore.Options = options
		store = cookieStore
	}
	return sessions.NewManager(store, cfg.Session.Name), nil
}
