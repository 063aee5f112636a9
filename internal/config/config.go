package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Cache      CacheConfig      `yaml:"cache"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Sync       SyncConfig       `yaml:"sync"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port        int `yaml:"port"`
	DefaultSize int `yaml:"default_page_size"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CacheConfig struct {
	AnnotationTTLSeconds int `yaml:"annotation_ttl_seconds"`
}

type TelegramConfig struct {
	BotToken string          `yaml:"bot_token"`
	Debug    bool            `yaml:"debug"`
	Chats    map[int64]int64 `yaml:"chats"` // user id -> chat id
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
}

type SyncConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxRetries int  `yaml:"max_retries"`
	BatchSize  int  `yaml:"batch_size"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins when present.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.API.HTTP.Port <= 0 || c.API.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.API.HTTP.Port)
	}
	if c.Google.BookingsSpreadsheetID != "" && c.Google.CredentialsFile == "" {
		return errors.New("google sheets sync requires credentials_file")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "lendhub"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.DefaultSize == 0 {
		c.API.HTTP.DefaultSize = 10
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Cache.AnnotationTTLSeconds == 0 {
		c.Cache.AnnotationTTLSeconds = 60
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 5
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 20
	}
}
