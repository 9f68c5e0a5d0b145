package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"campus-sim-server/internal/balance"
	"campus-sim-server/internal/config"
	"campus-sim-server/internal/content"
	"campus-sim-server/internal/handler"
	"campus-sim-server/internal/logger"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/repository"
	"campus-sim-server/internal/service"
	"campus-sim-server/internal/world"
	"campus-sim-server/migrations"
	"campus-sim-server/pkg/migration"
)

func main() {
	// В production .env может отсутствовать
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		fmt.Printf("Fatal: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	wsLogger := initZerolog(cfg.Logger.Level)

	balanceCfg, err := balance.Load(cfg.World.BalancePath, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось загрузить игровой баланс", zap.Error(err))
	}

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Redis недоступен", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer redisClient.Close()
	zapLogger.Info("Соединение с Redis установлено", zap.String("addr", cfg.Redis.Addr))

	dbPool, err := initDatabase(ctx, cfg.Postgres)
	if err != nil {
		zapLogger.Fatal("Postgres недоступен", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Соединение с Postgres установлено")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool)
	if err := migrator.Up(ctx); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	worldCatalog := world.NewCatalog(cfg.World.Dir, zapLogger)

	contentGen := content.NewGenerator(content.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, zapLogger)

	saveRepo := repository.NewPgGameSaveRepository(dbPool, zapLogger)
	saveService := service.NewSaveService(saveRepo, zapLogger)

	manager := handler.NewConnectionManager(wsLogger)
	reaperDone := make(chan struct{})
	go manager.RunReaper(reaperDone,
		time.Duration(cfg.Server.ReaperInterval)*time.Second,
		time.Duration(cfg.Server.ReaperTimeout)*time.Second,
	)

	wsHandler := handler.NewWebSocketHandler(
		manager,
		redisClient,
		worldCatalog,
		contentGen,
		saveService,
		balanceCfg,
		[]byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Redis.PlayerTTLSeconds)*time.Second,
		wsLogger,
		zapLogger,
	)

	router := setupRouter(wsHandler)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Игровой сервер запущен", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Сервер упал", zap.Error(err))
		}
	}()

	gracefulShutdown(server, manager, reaperDone, cfg.Server.ShutdownTimeout, zapLogger)
}

// setupRouter собирает HTTP-маршруты: WebSocket, health и метрики.
func setupRouter(wsHandler *handler.WebSocketHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	router.GET("/ws", func(c *gin.Context) {
		wsHandler.ServeWS(c.Writer, c.Request)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// initZerolog настраивает логгер транспортного слоя.
func initZerolog(level string) zerolog.Logger {
	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	return zlog.Logger
}

// initDatabase инициализирует пул соединений с Postgres.
func initDatabase(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// gracefulShutdown останавливает сервер: уведомляет подключённых игроков,
// гасит reaper и даёт соединениям время закрыться.
func gracefulShutdown(server *http.Server, manager *handler.ConnectionManager, reaperDone chan struct{}, timeoutSeconds int, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Остановка сервера...")

	manager.Broadcast(models.NewDescEvent("服务器即将维护，游戏状态已缓存，稍后可继续。"))
	close(reaperDone)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}

	logger.Info("Сервер остановлен")
}
