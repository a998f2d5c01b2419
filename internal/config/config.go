package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"daily-bars/internal/domain"
)

type Config struct {
	AlphaVantageAPIKey string
	DatabaseURL        string
	RedisURL           string
	TelegramBotToken   string

	Symbols         []string
	MaxCallsPerDay  int
	CallDelaySecs   int
	IndicatorWindow int
	QuotaFile       string
	HTTPPort        int
}

func Load() *Config {
	cfg := &Config{
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.AlphaVantageAPIKey == "" {
		log.Println("Warning: ALPHA_VANTAGE_API_KEY not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, bot will be disabled")
	}

	cfg.Symbols = domain.DefaultSymbols
	if v := strings.TrimSpace(os.Getenv("SYMBOLS")); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			cfg.Symbols = symbols
		}
	}

	cfg.MaxCallsPerDay = 25
	if v := strings.TrimSpace(os.Getenv("MAX_CALLS_PER_DAY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxCallsPerDay = n
		}
	}

	cfg.CallDelaySecs = 12
	if v := strings.TrimSpace(os.Getenv("CALL_DELAY_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CallDelaySecs = n
		}
	}

	cfg.IndicatorWindow = 14
	if v := strings.TrimSpace(os.Getenv("INDICATOR_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			cfg.IndicatorWindow = n
		}
	}

	cfg.QuotaFile = strings.TrimSpace(os.Getenv("QUOTA_FILE"))
	if cfg.QuotaFile == "" {
		cfg.QuotaFile = "api_calls_tracker.json"
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	return cfg
}
