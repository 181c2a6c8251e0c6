package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"cinesync/internal/core/services"
	httphandlers "cinesync/internal/handlers/http"
	"cinesync/internal/infrastructure/distributed"
	"cinesync/internal/infrastructure/middleware"
	"cinesync/internal/infrastructure/monitoring"
	"cinesync/internal/infrastructure/repositories"
	"cinesync/internal/infrastructure/signal"
	"cinesync/pkg/config"
	"cinesync/pkg/logger"
	"cinesync/pkg/tracing"
	"cinesync/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/cinesync/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	roomRepo := repoFactory.CreateRoomRepository()
	sessionRepo := repoFactory.CreateSessionRepository()
	chatRepo := repoFactory.CreateChatRepository()
	roomLocker := repoFactory.CreateRoomLocker()
	userRepo := repoFactory.CreateUserRepository()
	movieRepo := repoFactory.CreateMovieRepository()
	commentRepo := repoFactory.CreateCommentRepository()

	roomService := services.NewRoomService(roomRepo, sessionRepo, chatRepo, roomLocker, cfg.Room.DefaultCapacity, log)
	movieService := services.NewMovieService(movieRepo, cfg.Library.FavoriteLimit, log)
	commentService := services.NewCommentService(commentRepo, log)
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	collector := monitoring.NewCollector()

	relay := signal.NewHostSyncRelay(cfg.Gateway.HostSyncTimeout, log)
	wsServer := signal.NewWebSocketServer(roomService, authService, relay, collector, log)
	wsServer.SetPingInterval(cfg.Gateway.PingInterval)
	wsServer.SetPongTimeout(cfg.Gateway.PongTimeout)
	wsServer.SetMessageLimiter(middleware.NewWSMessageLimiter(cfg))

	// With Redis available, room events fan out to sockets held by other
	// gateway instances.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	if redisClient := repoFactory.RedisClient(); redisClient != nil {
		bus := distributed.NewRoomEventBus(redisClient, utils.GenerateID("instance"), log)
		wsServer.SetEventBus(bus)
		go func() {
			if err := bus.Subscribe(busCtx, wsServer.HandleRemoteEvent); err != nil && busCtx.Err() == nil {
				log.Errorw("room event bus subscription ended", "error", err)
			}
		}()
		defer bus.Close()
	}

	authHandler := httphandlers.NewAuthHandler(authService, cfg.Auth.AccessTokenTTL)
	roomHandler := httphandlers.NewRoomHandler(roomService, collector)
	movieHandler := httphandlers.NewMovieHandler(movieService)
	commentHandler := httphandlers.NewCommentHandler(commentService)
	userHandler := httphandlers.NewUserHandler(userService)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware(collector))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	// Public routes
	authHandler.SetupRoutes(router)

	// Authenticated API
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	{
		roomHandler.SetupRoutes(api)
		movieHandler.SetupRoutes(api)
		commentHandler.SetupRoutes(api)
		userHandler.SetupRoutes(api)
	}

	// Websocket gateway; the socket carries its own token.
	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))
	router.GET("/ws/health", gin.WrapF(wsServer.HealthCheck))

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRoomCatalogCheck(roomRepo, 2*time.Second)
	if redisClient := repoFactory.RedisClient(); redisClient != nil {
		healthChecker.AddRedisCheck(redisClient, 2*time.Second)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}
		if !healthChecker.IsReady(ctx) {
			c.JSON(503, gin.H{
				"status":    "not_ready",
				"timestamp": time.Now(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting CineSync server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down CineSync server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("CineSync server stopped")
}
