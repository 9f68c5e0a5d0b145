package config

import (
	"fmt"
	"log"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит всю конфигурацию игрового сервера.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	LLM      LLMConfig
	World    WorldConfig
	Logger   LoggerConfig
}

// ServerConfig содержит настройки HTTP/WebSocket сервера.
type ServerConfig struct {
	Port            string `envconfig:"PORT" default:"8080"`
	ReaperInterval  int    `envconfig:"WS_REAPER_INTERVAL_SECONDS" default:"30"` // Период обхода мёртвых соединений
	ReaperTimeout   int    `envconfig:"WS_REAPER_TIMEOUT_SECONDS" default:"90"`  // Сколько секунд без pong считается мёртвым
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10"`
}

// RedisConfig содержит настройки эфемерного хранилища состояния игроков.
type RedisConfig struct {
	Addr             string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password         string `envconfig:"REDIS_PASSWORD" default:""`
	DB               int    `envconfig:"REDIS_DB" default:"0"`
	PlayerTTLSeconds int    `envconfig:"PLAYER_STATE_TTL_SECONDS" default:"86400"` // Срок жизни ключей игрока
}

// PostgresConfig содержит настройки долговременного хранилища сейвов.
type PostgresConfig struct {
	DSN      string `envconfig:"DATABASE_URL" required:"true"`
	MaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
}

// AuthConfig содержит настройки проверки JWT при подключении.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// LLMConfig содержит настройки генератора нарративного контента.
type LLMConfig struct {
	APIKey         string `envconfig:"LLM_API_KEY" default:""`
	BaseURL        string `envconfig:"LLM_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model          string `envconfig:"LLM_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	TimeoutSeconds int    `envconfig:"LLM_TIMEOUT_SECONDS" default:"20"`
}

// WorldConfig содержит пути к файлам игрового контента.
type WorldConfig struct {
	Dir         string `envconfig:"WORLD_DIR" default:"world"`
	BalancePath string `envconfig:"BALANCE_PATH" default:"world/game_balance.json"`
}

// LoggerConfig содержит настройки логгера.
type LoggerConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	log.Printf("Конфигурация игрового сервера загружена:")
	log.Printf("  Port: %s", cfg.Server.Port)
	log.Printf("  Redis Addr: %s (DB %d, TTL %ds)", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.PlayerTTLSeconds)
	log.Printf("  Postgres Max Conns: %d", cfg.Postgres.MaxConns)
	log.Printf("  LLM Model: %s", cfg.LLM.Model)
	log.Printf("  World Dir: %s", cfg.World.Dir)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
