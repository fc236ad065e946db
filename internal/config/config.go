package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is the service configuration. Values come from an optional YAML file and are
// overridden by environment variables named in the env tags.
type Config struct {
	Port         string     `yaml:"port" env:"PORT"`
	Environment  string     `yaml:"environment" env:"ENVIRONMENT"`
	LogLevelName string     `yaml:"log_level" env:"LOG_LEVEL"`
	LogLevel     slog.Level `yaml:"-"`
	SiteURL      string     `yaml:"site_url" env:"SITE_URL"`
	RedisURL     string     `yaml:"redis_url" env:"REDIS_URL"`

	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	CORS     CORSConfig     `yaml:"cors"`
	Mail     MailConfig     `yaml:"mail"`
	QuizAPI  QuizAPIConfig  `yaml:"quiz_api"`
	Storage  StorageConfig  `yaml:"storage"`
	Events   EventsConfig   `yaml:"events"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL"`
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            string        `yaml:"port" env:"DB_PORT"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Name            string        `yaml:"name" env:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

type SessionConfig struct {
	Name     string        `yaml:"name" env:"SESSION_NAME"`
	HashKey  string        `yaml:"hash_key" env:"SESSION_HASH_KEY"`
	BlockKey string        `yaml:"block_key" env:"SESSION_BLOCK_KEY"`
	MaxAge   time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE"`
	Secure   bool          `yaml:"secure" env:"SESSION_SECURE"`
	// AllowTestIdentityHeader lets X-User-Id stand in for a session. Never enable in production.
	AllowTestIdentityHeader bool `yaml:"allow_test_identity_header" env:"ALLOW_TEST_IDENTITY_HEADER"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

type MailConfig struct {
	Host       string `yaml:"host" env:"SMTP_HOST"`
	User       string `yaml:"user" env:"SMTP_USER"`
	Password   string `yaml:"password" env:"SMTP_PASSWORD"`
	From       string `yaml:"from" env:"MAIL_FROM"`
	SkipVerify bool   `yaml:"skip_verify" env:"SMTP_SKIP_VERIFY"`
}

type QuizAPIConfig struct {
	URL          string        `yaml:"url" env:"QUIZ_API_URL"`
	Timeout      time.Duration `yaml:"timeout" env:"QUIZ_API_TIMEOUT"`
	NumMCQ       int           `yaml:"num_mcq" env:"QUIZ_NUM_MCQ"`
	NumOpenEnded int           `yaml:"num_open_ended" env:"QUIZ_NUM_OPEN_ENDED"`
	ModelName    string        `yaml:"model_name" env:"QUIZ_MODEL_NAME"`
}

type StorageConfig struct {
	CourseFilesDir string `yaml:"course_files_dir" env:"COURSE_FILES_DIR"`
}

type EventsConfig struct {
	KafkaBrokers  []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS"`
	ConsumerGroup string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP"`
}

// LoadConfig reads .env (if present), then CONFIG_FILE (if set), then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	setDefaults(cfg)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := processStructFields(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := finalize(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	cfg.Port = "8080"
	cfg.Environment = EnvDevelopment
	cfg.LogLevelName = "info"
	cfg.SiteURL = "http://localhost:8080"

	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "postgres"
	cfg.Database.Name = "etraincon"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxIdleConns = 5
	cfg.Database.MaxOpenConns = 20
	cfg.Database.ConnMaxLifetime = time.Hour

	cfg.Session.Name = "etraincon_session"
	cfg.Session.MaxAge = 7 * 24 * time.Hour

	cfg.CORS.AllowedOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"https://etraincon.com",
	}

	cfg.QuizAPI.URL = "https://bereket12445-my-quiz-api.hf.space/generate-quiz/"
	cfg.QuizAPI.Timeout = 5 * time.Minute
	cfg.QuizAPI.NumMCQ = 5
	cfg.QuizAPI.NumOpenEnded = 5
	cfg.QuizAPI.ModelName = "gemini-1.5-flash-latest"

	cfg.Storage.CourseFilesDir = "./data/courses"

	cfg.Events.ConsumerGroup = "learning-service"
}

func finalize(cfg *Config) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevelName)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if _, err := url.ParseRequestURI(cfg.SiteURL); err != nil {
		return fmt.Errorf("SITE_URL: %w", err)
	}
	if cfg.QuizAPI.URL == "" {
		return errors.New("QUIZ_API_URL is required")
	}
	if cfg.QuizAPI.NumMCQ < 0 || cfg.QuizAPI.NumOpenEnded < 0 {
		return errors.New("QUIZ_NUM_MCQ and QUIZ_NUM_OPEN_ENDED must not be negative")
	}
	if cfg.IsProduction() {
		if cfg.Session.HashKey == "" {
			return errors.New("SESSION_HASH_KEY is required in production")
		}
		if cfg.Session.AllowTestIdentityHeader {
			return errors.New("ALLOW_TEST_IDENTITY_HEADER must be off in production")
		}
	}
	if len(cfg.Session.HashKey) > 0 && len(cfg.Session.HashKey) < 32 {
		return errors.New("SESSION_HASH_KEY must be at least 32 bytes")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return errors.New("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DatabaseDSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts.
func (c *Config) DatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	d := c.Database
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
