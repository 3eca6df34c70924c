package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker          string
		AlertTopic      string
		ResolutionTopic string
		GroupID         string
	}
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Notification struct {
		QueueSize  int
		MaxWorkers int
	}
	Alerts struct {
		TickInterval time.Duration
		UrgentWindow time.Duration
	}
	Telegram struct {
		BotToken    string
		ChatID      int64
		MinSeverity string
		RateLimit   int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env if present
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.AlertTopic = os.Getenv("KAFKA_ALERT_TOPIC")
	cfg.Kafka.ResolutionTopic = os.Getenv("KAFKA_RESOLUTION_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Database DSN (Supabase connection string)
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Notification worker settings
	if qs, err := strconv.Atoi(os.Getenv("QUEUE_SIZE")); err == nil {
		cfg.Notification.QueueSize = qs
	}
	if mw, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil {
		cfg.Notification.MaxWorkers = mw
	}

	// Alert countdown settings
	var invalid []string
	if v := os.Getenv("ALERT_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "ALERT_TICK_INTERVAL")
		}
		cfg.Alerts.TickInterval = d
	}
	if v := os.Getenv("ALERT_URGENT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "ALERT_URGENT_WINDOW")
		}
		cfg.Alerts.UrgentWindow = d
	}

	// Telegram escalation
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			invalid = append(invalid, "TELEGRAM_CHAT_ID")
		}
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.MinSeverity = os.Getenv("TELEGRAM_MIN_SEVERITY")
	if rl, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = rl
	}

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configurations: %v", invalid)
	}

	// Validate required settings
	missing := []string{}
	if cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Kafka.AlertTopic == "" {
		cfg.Kafka.AlertTopic = "noshow_alerts"
	}
	if cfg.Kafka.ResolutionTopic == "" {
		cfg.Kafka.ResolutionTopic = "noshow_resolutions"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "noshow-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Notification.QueueSize == 0 {
		cfg.Notification.QueueSize = 500
	}
	if cfg.Notification.MaxWorkers == 0 {
		cfg.Notification.MaxWorkers = 4
	}
	if cfg.Alerts.TickInterval == 0 {
		cfg.Alerts.TickInterval = time.Second
	}
	if cfg.Alerts.UrgentWindow == 0 {
		cfg.Alerts.UrgentWindow = 5 * time.Minute
	}
	if cfg.Telegram.MinSeverity == "" {
		cfg.Telegram.MinSeverity = "error"
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 20
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
