package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the environment the service runs with
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string
	LogLevel    string

	HTTPPort     string
	MetricsPort  string
	DatabasePath string

	// Ledger
	GenesisPath   string
	StartBlock    uint64
	BlockInterval time.Duration

	// Callers must sign X-Principal with this secret when set
	APISecret string

	// Telegram
	TelegramToken string
	ChannelID     string

	// Event fan-out; empty disables the sink
	RedisAddr    string
	RedisChannel string
	KafkaBrokers string // "a:9092,b:9092"
	KafkaTopic   string
}

// Load reads the environment (and a .env file when present) and applies defaults
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getEnv("ENV", "local"),
		ServiceName: getEnv("SERVICE_NAME", "climatemarket"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		HTTPPort:     getEnv("PORT", "8080"),
		MetricsPort:  getEnv("METRICS_PORT", "9095"),
		DatabasePath: getEnv("DATABASE_PATH", "/app/data/ledger.db"),

		GenesisPath: getEnv("GENESIS_PATH", ""),
		APISecret:   getEnv("API_SECRET", ""),

		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:     getEnv("CHANNEL_ID", ""),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "ledger_calls"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ledger.calls"),
	}

	start, err := strconv.ParseUint(getEnv("START_BLOCK", "1"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid START_BLOCK: %w", err)
	}
	cfg.StartBlock = start

	interval, err := time.ParseDuration(getEnv("BLOCK_INTERVAL", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BLOCK_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("invalid BLOCK_INTERVAL: must be positive")
	}
	cfg.BlockInterval = interval

	return cfg, nil
}

// KafkaBrokerList splits KafkaBrokers on commas, dropping blanks
func (c Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// getEnv returns the environment value for key or def when unset
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
