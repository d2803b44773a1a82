package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/chatbot"
	"github.com/guubot/guubot/internal/chzzk"
	"github.com/guubot/guubot/internal/config"
	"github.com/guubot/guubot/internal/database"
	"github.com/guubot/guubot/internal/gateway"
	"github.com/guubot/guubot/internal/handlers"
	"github.com/guubot/guubot/internal/janitor"
	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/middleware"
	"github.com/guubot/guubot/internal/services"
	"github.com/guubot/guubot/internal/video"
)

// Version of the application
var Version = "1.0.0"

func main() {
	configLoader := config.NewConfigLoader()
	appConfig, err := configLoader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logging.InitGlobalLogger(logging.LogLevel(appConfig.Logging.Level), appConfig.Logging.Format)
	logging.Infof("Starting guubot v%s", Version)

	dbManager, err := database.NewDatabaseManager(&appConfig.Database, logging.WithModule("database"))
	if err != nil {
		logging.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logging.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional: without it video metadata lookups just skip the cache.
	var redisClient *redis.Client
	if appConfig.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		})
		defer redisClient.Close()
	}

	eventBus := bus.New()
	repo := services.NewRepository(dbManager.GetGormDB())
	songService := services.NewSongRequestService(repo, eventBus)

	var videoProvider video.Provider = video.NewYouTubeClient()
	if redisClient != nil {
		videoProvider = video.NewCachedProvider(videoProvider, redisClient, appConfig.Redis.TTL)
	}

	chatbot.NewDispatcher(eventBus, songService, videoProvider, chatbot.Config{
		Prefix:         appConfig.Chat.Prefix,
		UserRateLimit:  appConfig.Chat.UserRateLimit,
		UserRateWindow: appConfig.Chat.UserRateWindow,
	})

	wsGateway := gateway.New(eventBus, songService)

	chzzkClient := chzzk.NewClient(appConfig.Chzzk)
	chatManager := chzzk.NewManager(eventBus, chzzkClient)
	defer chatManager.Shutdown()

	var reconciler *janitor.Janitor
	if appConfig.Janitor.Enabled {
		reconciler, err = janitor.New(repo, songService, wsGateway.Registry(), appConfig.Janitor.Schedule)
		if err != nil {
			logging.Fatalf("Failed to schedule janitor: %v", err)
		}
		reconciler.Start()
		defer reconciler.Stop()
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "Guubot",
		AppName:      "Guubot v" + Version,
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
		IdleTimeout:  appConfig.Server.IdleTimeout,
	})

	app.Use(logging.GetGlobalLogger().FiberLoggerMiddleware())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(middleware.PrometheusMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: appConfig.Server.CORS.AllowOrigins,
		AllowMethods: appConfig.Server.CORS.AllowMethods,
		AllowHeaders: appConfig.Server.CORS.AllowHeaders,
	}))

	songHandler := handlers.NewSongRequestHandler(songService)
	healthHandler := handlers.NewHealthHandler(dbManager, redisClient)
	metricsHandler := handlers.NewMetricsHandler()

	app.Get("/song-request/:channelId", middleware.NewQueueRateLimiter(120, time.Minute), songHandler.GetQueue)
	app.Get("/healthz", healthHandler.HealthCheck)
	app.Get("/metrics", metricsHandler.Metrics())

	app.Use("/ws", gateway.UpgradeMiddleware())
	app.Get("/ws", wsGateway.Handler())

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logging.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logging.Errorf("Error during shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port)
	logging.Infof("Listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		logging.Errorf("Error starting server: %v", err)
	}
}
