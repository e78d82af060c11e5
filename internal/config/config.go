package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Daraja  DarajaConfig  `koanf:"daraja"`
	Webhook WebhookConfig `koanf:"webhook"`
	Logger  LoggerConfig  `koanf:"logger"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DarajaConfig struct {
	ConsumerKey    string `koanf:"consumer_key" validate:"required"`
	ConsumerSecret string `koanf:"consumer_secret" validate:"required"`
	Environment    string `koanf:"environment" validate:"required,oneof=sandbox production"`
	// When RegisterC2BURLs is set, confirmation/validation URLs derived
	// from PublicBaseURL are registered for ShortCode on startup.
	ShortCode       string `koanf:"short_code"`
	RegisterC2BURLs bool   `koanf:"register_c2b_urls"`
	PublicBaseURL   string `koanf:"public_base_url"`
}

type WebhookConfig struct {
	// SkipIPCheck disables the Safaricom source-IP allowlist. Local
	// development only.
	SkipIPCheck bool `koanf:"skip_ip_check"`
	// TrustProxy makes the allowlist read the client address from the
	// X-Forwarded-For hop a fronting reverse proxy appends. Enable only
	// when such a proxy terminates all inbound connections.
	TrustProxy     bool     `koanf:"trust_proxy"`
	SubscriberURLs []string `koanf:"subscriber_urls"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
