package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"judge-chat-service/internal/cache"
	"judge-chat-service/internal/chat"
	"judge-chat-service/internal/config"
	"judge-chat-service/internal/db"
	"judge-chat-service/internal/handlers"
	"judge-chat-service/internal/logger"
	"judge-chat-service/internal/middleware"
	"judge-chat-service/internal/observability"
	"judge-chat-service/internal/rabbitmq"
	"judge-chat-service/internal/repositories"
	"judge-chat-service/internal/views"
	"judge-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, "judge-chat-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The cache is derivative; a missing Redis degrades latency only.
		log.Warn().Err(err).Msg("redis unreachable, serving from store until it returns")
	}

	backend := cache.NewTiered(cache.NewMemory(), cache.NewRedis(redisClient), cfg.CacheFastTTL)

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	ignoreRepo := repositories.NewIgnoreRepo(database)

	roomViews := views.NewRoomViews(backend, cfg.CacheRoomTTL, roomRepo, messageRepo)
	roomLists := views.NewRoomLists(backend, cfg.CacheListTTL, roomRepo)
	ignores := views.NewIgnores(backend, cfg.CacheIgnoreTTL, ignoreRepo, roomRepo, roomLists, cfg.IgnoreStrategyThreshold)
	unread := views.NewUnreadBoxes(backend, cfg.CacheUnreadTTL, roomRepo, ignores)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	hub := ws.NewHub()

	roomService := chat.NewRoomService(roomRepo, roomViews, roomLists, ignores, unread, publisher, cfg.RoomCap, log.Logger)
	messageService := chat.NewMessageService(roomRepo, messageRepo, roomViews, roomLists, unread, hub, publisher, log.Logger)

	chatHandler := handlers.NewChatHandler(roomService, messageService, roomLists, roomViews, unread)
	ignoreHandler := handlers.NewIgnoreHandler(ignores)
	roomWS := ws.NewRoomWebSocketHandler(hub, roomRepo, messageService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("judge-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identity := middleware.Identity()

	router.GET("/rooms", identity, chatHandler.ListRooms)
	router.POST("/rooms/start", identity, chatHandler.StartRoom)
	router.GET("/rooms/:room_id/messages", identity, chatHandler.GetMessages)
	router.POST("/rooms/:room_id/messages", identity, chatHandler.PostMessage)
	router.POST("/rooms/:room_id/seen", identity, chatHandler.MarkSeen)
	router.DELETE("/messages/:message_id", identity, chatHandler.DeleteMessage)
	router.GET("/me/unread_count", identity, chatHandler.UnreadCount)
	router.GET("/me/ignores", identity, ignoreHandler.ListIgnores)
	router.POST("/me/ignores/:target_id/toggle", identity, ignoreHandler.ToggleIgnore)

	router.GET("/ws/rooms/:room_id", identity, roomWS.Handle)

	log.Info().Str("port", cfg.Port).Msg("chat service listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
