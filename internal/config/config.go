package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken        string
	AdminIDs        []int64
	ChannelID       int64
	ChannelUsername string

	CryptoPayToken   string
	CryptoPayBaseURL string
	PollInterval     time.Duration
	ProviderTimeout  time.Duration

	PostgresDSN string
	RedisAddr   string
	KafkaBroker string
	BoltPath    string
	OpsAddr     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment", "error", err)
	}

	cfg := &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		AdminIDs:         parseIDList(os.Getenv("ADMIN_IDS")),
		ChannelID:        parseInt64(os.Getenv("CHANNEL_ID")),
		ChannelUsername:  os.Getenv("CHANNEL_USERNAME"),
		CryptoPayToken:   os.Getenv("CRYPTOBOT_API_TOKEN"),
		CryptoPayBaseURL: os.Getenv("CRYPTOBOT_API_BASE"),
		PollInterval:     parseDuration(os.Getenv("INVOICE_POLL_INTERVAL"), 10*time.Second),
		ProviderTimeout:  parseDuration(os.Getenv("PROVIDER_TIMEOUT"), 10*time.Second),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		BoltPath:         os.Getenv("BOLT_PATH"),
		OpsAddr:          os.Getenv("OPS_ADDR"),
	}

	if cfg.CryptoPayBaseURL == "" {
		cfg.CryptoPayBaseURL = "https://pay.crypt.bot/api"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=shop sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.KafkaBroker == "" {
		cfg.KafkaBroker = "localhost:9092"
	}
	if cfg.BoltPath == "" {
		cfg.BoltPath = "inventory.db"
	}
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = ":9091"
	}

	slog.Info("config loaded",
		"admin_ids", cfg.AdminIDs,
		"channel_id", cfg.ChannelID,
		"postgres_dsn", cfg.PostgresDSN,
		"redis_addr", cfg.RedisAddr,
		"kafka_broker", cfg.KafkaBroker,
		"bolt_path", cfg.BoltPath,
		"poll_interval", cfg.PollInterval)
	return cfg
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("skipping malformed admin id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseInt64(raw string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("malformed duration, using default", "value", raw, "default", def)
		return def
	}
	return d
}
