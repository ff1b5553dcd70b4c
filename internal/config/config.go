package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	EventWebhookURL string
	MessagesDir     string

	VariantsFile   string
	DefaultVariant string
	Variants       *VariantTable

	GameTTL   time.Duration
	InviteTTL time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":8080",
		DefaultVariant: "vaticano",
		GameTTL:        24 * time.Hour,
		InviteTTL:      10 * time.Minute,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.EventWebhookURL = strings.TrimSpace(os.Getenv("EVENT_WEBHOOK_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.VariantsFile = strings.TrimSpace(os.Getenv("VARIANTS_FILE"))
	if v := strings.TrimSpace(os.Getenv("DEFAULT_VARIANT")); v != "" {
		cfg.DefaultVariant = v
	}
	if v := strings.TrimSpace(os.Getenv("GAME_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("INVITE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InviteTTL = time.Duration(n) * time.Second
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	table, err := LoadVariants(cfg.VariantsFile)
	if err != nil {
		return nil, err
	}
	if _, ok := table.Get(cfg.DefaultVariant); !ok {
		return nil, fmt.Errorf("DEFAULT_VARIANT %q is not defined", cfg.DefaultVariant)
	}
	cfg.Variants = table
	return cfg, nil
}
