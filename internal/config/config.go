// Package config は viper を使って設定ファイル・環境変数・フラグから設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shouni/gemini-image-editor/pkg/generator"
	"github.com/shouni/gemini-image-editor/pkg/ratelimit"
)

// EnvPrefix は環境変数の接頭辞です（例: IMAGE_EDITOR_SERVER_ADDR）。
const EnvPrefix = "IMAGE_EDITOR"

// ストアの種類
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	APIKey    string          `mapstructure:"api_key"`
	Model     string          `mapstructure:"model"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	UserAgent string          `mapstructure:"user_agent"`
	Compress  bool            `mapstructure:"compress_uploads"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type StoreConfig struct {
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults は v に既定値を登録します。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("model", generator.DefaultModel)
	v.SetDefault("timeout", generator.DefaultTimeout)
	v.SetDefault("user_agent", "gemini-image-editor")
	v.SetDefault("compress_uploads", false)
	v.SetDefault("rate_limit.max_requests", ratelimit.DefaultMaxRequests)
	v.SetDefault("rate_limit.window", ratelimit.DefaultWindow)
	v.SetDefault("store.type", StoreFile)
	v.SetDefault("store.path", DefaultStatePath())
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", ratelimit.DefaultRedisKeyPrefix)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(64<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// DefaultStatePath はレートリミット状態ファイルの既定パスです。
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gemini-image-editor", "ratelimit.yaml")
}

// Load は .env、設定ファイル（任意）、環境変数の順に読み込み、検証済みの Config を返します。
// cfgFile が空の場合は設定ファイルを読みません。
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API キーは一般的な環境変数名でも受け付ける
	if err := v.BindEnv("api_key", EnvPrefix+"_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api_key: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を確認します。API キーは生成時にだけ必要なのでここでは見ません。
func (c *Config) Validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive: %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive: %s", c.RateLimit.Window)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", c.Timeout)
	}
	switch c.Store.Type {
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for file store")
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.type: %q (file, redis, memory)", c.Store.Type)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format: %q (text, json)", c.Log.Format)
	}
	return nil
}
