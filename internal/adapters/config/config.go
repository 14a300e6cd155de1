package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/selivandex/supplier-risk/pkg/models"
)

// Config represents application configuration
type Config struct {
	Scoring    ScoringConfig    `envconfig:"SCORING"`
	Indicators IndicatorsConfig `envconfig:"INDICATORS"`
	News       NewsConfig       `envconfig:"NEWS"`
	Sentiment  SentimentConfig  `envconfig:"SENTIMENT"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Health     HealthConfig     `envconfig:"HEALTH"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// ScoringConfig represents weighting and roster parameters
type ScoringConfig struct {
	Alpha        float64       `envconfig:"SCORING_ALPHA" default:"0.60"`
	Beta         float64       `envconfig:"SCORING_BETA" default:"0.25"`
	Gamma        float64       `envconfig:"SCORING_GAMMA" default:"0.15"`
	LookbackDays int           `envconfig:"SCORING_LOOKBACK_DAYS" default:"90"`
	RosterPath   string        `envconfig:"SCORING_ROSTER_PATH" default:"suppliers.csv"`
	Interval     time.Duration `envconfig:"SCORING_INTERVAL" default:"6h"`
}

// IndicatorsConfig represents the World Bank indicator source
type IndicatorsConfig struct {
	BaseURL  string        `envconfig:"WB_BASE_URL" default:"https://api.worldbank.org/v2"`
	GeoCode  string        `envconfig:"WB_GEO_CODE" default:"PV.EST"`
	RegCode  string        `envconfig:"WB_REG_CODE" default:"RQ.EST"`
	CacheTTL time.Duration `envconfig:"WB_CACHE_TTL" default:"24h"`
	Timeout  time.Duration `envconfig:"WB_TIMEOUT" default:"30s"`
}

// NewsConfig represents the headline feed
type NewsConfig struct {
	BaseURL     string        `envconfig:"NEWS_BASE_URL" default:"https://news.google.com/rss/search"`
	QuerySuffix string        `envconfig:"NEWS_QUERY_SUFFIX" default:"packaging OR cans"`
	Language    string        `envconfig:"NEWS_LANGUAGE" default:"en-US"`
	Region      string        `envconfig:"NEWS_REGION" default:"US"`
	Timeout     time.Duration `envconfig:"NEWS_TIMEOUT" default:"30s"`
}

// SentimentConfig selects the polarity scorer
type SentimentConfig struct {
	Provider     string `envconfig:"SENTIMENT_PROVIDER" default:"lexicon"` // lexicon or openai
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"false"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
}

// RedisConfig represents the optional shared indicator cache
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// TelegramConfig represents high-risk alerting
type TelegramConfig struct {
	Enabled        bool    `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken       string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID         int64   `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertThreshold float64 `envconfig:"TELEGRAM_ALERT_THRESHOLD" default:"70"`
}

// HealthConfig represents the HTTP status server
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if err := c.Scoring.Weights().Validate(); err != nil {
		return err
	}
	if c.Scoring.LookbackDays < 30 || c.Scoring.LookbackDays > 180 {
		return fmt.Errorf("lookback_days must be between 30 and 180, got %d", c.Scoring.LookbackDays)
	}
	if c.Scoring.Interval <= 0 {
		return fmt.Errorf("scoring interval must be positive")
	}

	if c.Indicators.GeoCode == "" || c.Indicators.RegCode == "" {
		return fmt.Errorf("indicator codes are required")
	}
	if c.Indicators.CacheTTL <= 0 {
		return fmt.Errorf("indicator cache ttl must be positive")
	}
	if c.Indicators.Timeout <= 0 || c.News.Timeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}

	switch c.Sentiment.Provider {
	case "lexicon":
	case "openai":
		if c.Sentiment.OpenAIAPIKey == "" {
			return fmt.Errorf("openai sentiment provider requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown sentiment provider %q", c.Sentiment.Provider)
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram chat_id is required")
		}
	}

	return nil
}

// Weights returns the configured pillar weights
func (s *ScoringConfig) Weights() models.Weights {
	return models.Weights{Alpha: s.Alpha, Beta: s.Beta, Gamma: s.Gamma}
}

// Addr returns host:port of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
