package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	DB        DatabaseConfig
	Push      PushConfig
	Alerts    AlertsConfig
	Ollama    OllamaConfig
	Data      DataConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Kafka     KafkaConfig
	Telegram  TelegramConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type DatabaseConfig struct {
	Path string
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	Store           string // memory, sqlite or redis
	RedisURL        string
	TTL             int // seconds the push service keeps an undelivered message
	Concurrency     int
	Workers         int
	QueueSize       int
}

type AlertsConfig struct {
	HighThreshold     int
	MediumThreshold   int
	LowThreshold      int
	CombinedThreshold int // 0 disables the high+medium bucket
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	MaxSessions       int
	MaxSessionReports int
}

type OllamaConfig struct {
	Host     string
	APIKey   string
	Model    string
	LocalURL string
	Timeout  time.Duration
	RetryMax int
}

type DataConfig struct {
	ZonesPath string
	CSVPath   string
}

type RateLimitConfig struct {
	GlobalRPS int
	AIRPS     int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/resilience.db"),
		},
		Push: PushConfig{
			// NEXT_PUBLIC_ prefix kept so the dashboard and API can share one .env
			VAPIDPublicKey:  getEnvAny([]string{"VAPID_PUBLIC_KEY", "NEXT_PUBLIC_VAPID_PUBLIC_KEY"}, ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			VAPIDSubject:    getEnv("VAPID_EMAIL", "mailto:admin@dir-soacha.org"),
			Store:           strings.ToLower(getEnv("SUBSCRIPTION_STORE", "memory")),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTL:             getEnvInt("PUSH_TTL_SECONDS", 3600),
			Concurrency:     getEnvInt("PUSH_CONCURRENCY", 8),
			Workers:         getEnvInt("NOTIFY_WORKERS", 2),
			QueueSize:       getEnvInt("NOTIFY_QUEUE_SIZE", 50),
		},
		Alerts: AlertsConfig{
			HighThreshold:     getEnvInt("ALERT_THRESHOLD_HIGH", 5),
			MediumThreshold:   getEnvInt("ALERT_THRESHOLD_MEDIUM", 5),
			LowThreshold:      getEnvInt("ALERT_THRESHOLD_LOW", 10),
			CombinedThreshold: getEnvInt("ALERT_THRESHOLD_COMBINED", 0),
			SessionTTL:        getEnvDuration("ALERT_SESSION_TTL", 12*time.Hour),
			SweepInterval:     getEnvDuration("ALERT_SWEEP_INTERVAL", 10*time.Minute),
			MaxSessions:       getEnvInt("ALERT_MAX_SESSIONS", 10000),
			MaxSessionReports: getEnvInt("ALERT_MAX_SESSION_REPORTS", 500),
		},
		Ollama: OllamaConfig{
			Host:     getEnv("OLLAMA_HOST", "https://ollama.com"),
			APIKey:   getEnv("OLLAMA_API_KEY", ""),
			Model:    getEnvAny([]string{"OLLAMA_MODEL", "NEXT_PUBLIC_OLLAMA_MODEL"}, "gpt-oss:120b-cloud"),
			LocalURL: getEnv("OLLAMA_LOCAL_URL", "http://localhost:11434"),
			Timeout:  getEnvDuration("OLLAMA_TIMEOUT", 2*time.Minute),
			RetryMax: getEnvInt("OLLAMA_RETRY_MAX", 2),
		},
		Data: DataConfig{
			ZonesPath: getEnv("ZONES_GEOJSON_PATH", "./data/soacha.geojson"),
			CSVPath:   getEnv("EXPORT_CSV_PATH", "./data/BASE DE DATOS LISTA.csv"),
		},
		RateLimit: RateLimitConfig{
			GlobalRPS: getEnvInt("RATE_LIMIT_RPS", 20),
			AIRPS:     getEnvInt("AI_RATE_LIMIT_RPS", 2),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "dir-soacha.alerts"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Push.Store {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("invalid subscription store: %s", c.Push.Store)
	}
	if c.Push.Workers < 1 || c.Push.QueueSize < 1 || c.Push.Concurrency < 1 {
		return fmt.Errorf("push workers, queue size and concurrency must be positive")
	}

	if c.Alerts.HighThreshold < 1 || c.Alerts.MediumThreshold < 1 || c.Alerts.LowThreshold < 1 {
		return fmt.Errorf("alert thresholds must be at least 1")
	}
	if c.Alerts.CombinedThreshold < 0 {
		return fmt.Errorf("combined alert threshold must not be negative")
	}
	if c.Alerts.SweepInterval < time.Second {
		return fmt.Errorf("alert sweep interval must be at least 1 second")
	}
	if c.Alerts.MaxSessions < 1 || c.Alerts.MaxSessionReports < 1 {
		return fmt.Errorf("alert session limits must be at least 1")
	}

	if c.RateLimit.GlobalRPS < 1 || c.RateLimit.AIRPS < 1 {
		return fmt.Errorf("rate limits must be at least 1 request per second")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAny(keys []string, fallback string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
