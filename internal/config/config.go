package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the results API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	BroadsheetTTL     time.Duration
	RankingMaxRetries int
	BulkMarksRateMax  int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DARASA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Darasa Results API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("broadsheet.cache_ttl", "5m")
	v.SetDefault("ranking.max_retries", 3)
	v.SetDefault("bulk_marks.rate_max", 10)
	v.SetDefault("nats.subject", "darasa.results.published")

	ttlString := v.GetString("broadsheet.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid broadsheet cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubject:       v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		BroadsheetTTL:     ttl,
		RankingMaxRetries: v.GetInt("ranking.max_retries"),
		BulkMarksRateMax:  v.GetInt("bulk_marks.rate_max"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RankingMaxRetries <= 0 {
		cfg.RankingMaxRetries = 3
	}

	if cfg.BulkMarksRateMax <= 0 {
		cfg.BulkMarksRateMax = 10
	}

	return cfg, nil
}
