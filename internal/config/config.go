package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host     string `mapstructure:"DB_HOST"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	DBPort   string `mapstructure:"DB_PORT"`

	ServerPort string `mapstructure:"SERVER_PORT"`

	// Domain is the public host files are served under; file URLs are
	// always https://<Domain>/<name>.
	Domain string `mapstructure:"DOMAIN"`

	AuthEnabled  bool   `mapstructure:"AUTH_ENABLED"`
	AuthUser     string `mapstructure:"AUTH_USER"`
	AuthPassword string `mapstructure:"AUTH_PASSWORD"`
	AuthSecret   string `mapstructure:"AUTH_SECRET"`

	BotToken      string `mapstructure:"TG_BOT_TOKEN"`
	ChannelID     int64  `mapstructure:"TG_CHANNEL_ID"`
	WebhookSecret string `mapstructure:"TG_WEBHOOK_SECRET"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// NoticeURL, when set, is fetched (and cached) to show a notice of
	// the day inside the bot menu.
	NoticeURL string `mapstructure:"NOTICE_URL"`

	MaxSizeMB    int64         `mapstructure:"MAX_SIZE_MB"`
	FileCacheTTL time.Duration `mapstructure:"FILE_CACHE_TTL"`
	MenuCacheTTL time.Duration `mapstructure:"MENU_CACHE_TTL"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MAX_SIZE_MB", 20)
	viper.SetDefault("FILE_CACHE_TTL", time.Hour)
	viper.SetDefault("MENU_CACHE_TTL", 30*time.Second)
	viper.SetDefault("S3_REGION", "auto")

	// .env is optional, env vars alone are enough
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}

	if cfg.DBPort == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}

	if cfg.Domain == "" {
		return nil, fmt.Errorf("DOMAIN is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TG_BOT_TOKEN is required")
	}

	if cfg.ChannelID == 0 {
		return nil, fmt.Errorf("TG_CHANNEL_ID is required")
	}

	if cfg.AuthEnabled {
		if cfg.AuthUser == "" || cfg.AuthPassword == "" {
			return nil, fmt.Errorf("AUTH_USER and AUTH_PASSWORD are required when AUTH_ENABLED is set")
		}
		if cfg.AuthSecret == "" {
			return nil, fmt.Errorf("AUTH_SECRET is required when AUTH_ENABLED is set")
		}
	}

	return &cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.DBPort)
}

// S3Configured reports whether the object-store backend can be used at
// all. When false the storage selector falls back to Telegram.
func (c *Config) S3Configured() bool {
	return c.S3BucketName != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

func (c *Config) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}
