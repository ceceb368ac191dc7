package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Invite   InviteConfig   `yaml:"invite"`
	Audit    AuditConfig    `yaml:"audit"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Mode     string `yaml:"mode"`      // debug, release, test
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// JWTConfig controls the token lifecycle. AccessExpireMinutes bounds the
// staleness window during which a deactivated user's access token stays valid.
type JWTConfig struct {
	Secret              string `yaml:"secret"`
	AccessExpireMinutes int    `yaml:"access_expire_minutes"`
	RefreshExpireHours  int    `yaml:"refresh_expire_hours"`
}

type InviteConfig struct {
	ExpireHours int    `yaml:"expire_hours"`
	FrontendURL string `yaml:"frontend_url"` // base for accept-invite links
}

type AuditConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// RedisConfig enables the async audit queue; when disabled audit entries
// are written in-process.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     "8080",
			Mode:     "debug",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskhub.db",
		},
		JWT: JWTConfig{
			Secret:              "taskhub-secret-key-change-in-production",
			AccessExpireMinutes: 15,
			RefreshExpireHours:  168, // 7 days
		},
		Invite: InviteConfig{
			ExpireHours: 48,
			FrontendURL: "http://localhost:5173",
		},
		Audit: AuditConfig{
			RetentionDays: 90,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.JWT.AccessExpireMinutes <= 0 {
		c.JWT.AccessExpireMinutes = 15
	}
	if c.JWT.RefreshExpireHours <= 0 {
		c.JWT.RefreshExpireHours = 168
	}
	if c.Invite.ExpireHours <= 0 {
		c.Invite.ExpireHours = 48
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 90
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if minutes := os.Getenv("JWT_ACCESS_EXPIRE_MINUTES"); minutes != "" {
		if v, err := strconv.Atoi(minutes); err == nil && v > 0 {
			c.JWT.AccessExpireMinutes = v
		}
	}
	if hours := os.Getenv("REFRESH_EXPIRE_HOURS"); hours != "" {
		if v, err := strconv.Atoi(hours); err == nil && v > 0 {
			c.JWT.RefreshExpireHours = v
		}
	}
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		c.Invite.FrontendURL = url
	}
	if days := os.Getenv("AUDIT_RETENTION_DAYS"); days != "" {
		if v, err := strconv.Atoi(days); err == nil && v > 0 {
			c.Audit.RetentionDays = v
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
