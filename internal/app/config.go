package app

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/scoring"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL         string `toml:"redis_url"`
		TokenHeader      string `toml:"token_header"`
		TokenKeyTemplate string `toml:"token_key_template"`
		TokenTTLHours    int    `toml:"token_ttl_hours"`
	} `toml:"auth"`

	API struct {
		InstructorHeader string         `toml:"instructor_header"`
		RequiredHeaders  []HeaderConfig `toml:"required_headers"`
		MaxUploadBytes   int64          `toml:"max_upload_bytes"`
		SearchLimit      int            `toml:"search_limit"`
	} `toml:"api"`

	Storage struct {
		DSN             string `toml:"dsn"`
		MigrationsDir   string `toml:"migrations_dir"`
		CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	} `toml:"storage"`

	Logging struct {
		Debug bool `toml:"debug"`
	} `toml:"logging"`

	Scoring scoring.Grader `toml:"scoring"`

	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
	} `toml:"bot"`

	Export struct {
		SpreadsheetID   string   `toml:"spreadsheet_id"`
		CredentialsFile string   `toml:"credentials_file"`
		Schedule        string   `toml:"schedule"`
		Courses         []string `toml:"courses"`
	} `toml:"export"`
}

// Environment overrides, read after an optional .env file.
const (
	EnvDSN      = "SEMLA_DSN"
	EnvBotToken = "SEMLA_BOT_TOKEN"
	EnvRedisURL = "SEMLA_REDIS_URL"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Info.Printf("Ignoring .env: %v", err)
	}
	config.applyEnv()
	config.applyDefaults()

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	logger.Debug.Printf("Loaded scoring config: %+v", config.Scoring)

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDSN); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(EnvBotToken); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Auth.RedisURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Storage.DSN == "" {
		c.Storage.DSN = "semla.db"
	}
	if c.Auth.TokenHeader == "" {
		c.Auth.TokenHeader = "Authorization"
	}
	if c.Auth.TokenKeyTemplate == "" {
		c.Auth.TokenKeyTemplate = "auth:{instructor}"
	}
	if c.API.InstructorHeader == "" {
		c.API.InstructorHeader = "X-Semla-Instructor"
	}
	if c.API.MaxUploadBytes <= 0 {
		c.API.MaxUploadBytes = 5 << 20
	}
	if c.API.SearchLimit <= 0 {
		c.API.SearchLimit = 50
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Storage.CacheTTLSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
