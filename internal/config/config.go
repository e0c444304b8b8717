package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "CHATGUARD_"

	BackendScore      = "score"
	BackendGenerative = "generative"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Queue      QueueConfig      `koanf:"queue"`
	Storage    StorageConfig    `koanf:"storage"`
	Redis      RedisConfig      `koanf:"redis"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Notifier   NotifierConfig   `koanf:"notifier"`
	Scraper    ScraperConfig    `koanf:"scraper"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type QueueConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type RedisConfig struct {
	Addr string        `koanf:"addr"`
	TTL  time.Duration `koanf:"ttl"`
}

type ClassifierConfig struct {
	Backend    string           `koanf:"backend"`
	Score      ScoreConfig      `koanf:"score"`
	Generative GenerativeConfig `koanf:"generative"`
}

type ScoreConfig struct {
	Endpoint            string        `koanf:"endpoint"`
	APIKey              string        `koanf:"api_key"`
	Labels              []string      `koanf:"labels"`
	ConfidenceThreshold float64       `koanf:"confidence_threshold"`
	Timeout             time.Duration `koanf:"timeout"`
}

type GenerativeConfig struct {
	APIKey                    string        `koanf:"api_key"`
	Model                     string        `koanf:"model"`
	BaseURL                   string        `koanf:"base_url"`
	ConfidenceThreshold       float64       `koanf:"confidence_threshold"`
	PhishingAbsoluteThreshold float64       `koanf:"phishing_absolute_threshold"`
	Workers                   int           `koanf:"workers"`
	Timeout                   time.Duration `koanf:"timeout"`
}

// ScraperConfig drives the feed poller. No channels disables it.
type ScraperConfig struct {
	FeedURL  string        `koanf:"feed_url"`
	Channels []string      `koanf:"channels"`
	Interval time.Duration `koanf:"interval"`
}

type NotifierConfig struct {
	TelegramToken   string   `koanf:"telegram_token"`
	TelegramChatIDs []string `koanf:"telegram_chat_ids"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Queue: QueueConfig{
			Topic:   "chat-messages",
			GroupID: "chatguard",
		},
		Storage: StorageConfig{Driver: DriverSQLite, DSN: "chatguard.db"},
		Redis:   RedisConfig{TTL: 24 * time.Hour},
		Scraper: ScraperConfig{
			FeedURL:  "https://www.youtube.com/feeds/videos.xml",
			Interval: 5 * time.Minute,
		},
		Classifier: ClassifierConfig{
			Backend: BackendScore,
			Score: ScoreConfig{
				Labels:              []string{"benign", "phishing"},
				ConfidenceThreshold: 0.99997,
				Timeout:             30 * time.Second,
			},
			Generative: GenerativeConfig{
				Model:                     "mistralai/mistral-7b-instruct",
				ConfidenceThreshold:       0.9,
				PhishingAbsoluteThreshold: 0.99,
				Workers:                   4,
				Timeout:                   60 * time.Second,
			},
		},
	}
}

// Load overlays the YAML file at path (skipped when it does not exist) and
// CHATGUARD_ environment variables onto the defaults. Nested keys use a
// double underscore: CHATGUARD_CLASSIFIER__BACKEND.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	cl := c.Classifier
	switch cl.Backend {
	case BackendScore:
		if cl.Score.Endpoint == "" {
			return errors.New("classifier.score.endpoint required")
		}
		if len(cl.Score.Labels) != 2 {
			return errors.New("classifier.score.labels must name exactly two classes")
		}
	case BackendGenerative:
		if cl.Generative.APIKey == "" {
			return errors.New("classifier.generative.api_key required")
		}
		if cl.Generative.Workers < 1 {
			return errors.New("classifier.generative.workers must be at least 1")
		}
	default:
		return fmt.Errorf("unknown classifier backend %q", cl.Backend)
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"classifier.score.confidence_threshold", cl.Score.ConfidenceThreshold},
		{"classifier.generative.confidence_threshold", cl.Generative.ConfidenceThreshold},
		{"classifier.generative.phishing_absolute_threshold", cl.Generative.PhishingAbsoluteThreshold},
	}
	for _, t := range thresholds {
		if t.value < 0 || t.value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", t.name, t.value)
		}
	}

	if len(c.Scraper.Channels) > 0 && c.Scraper.Interval <= 0 {
		return errors.New("scraper.interval must be positive")
	}

	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}
