package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sitecraft/siteadmin/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Assets    AssetsConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StoreConfig selects where the documents live: memory, git, mongo or redis.
type StoreConfig struct {
	Backend string
	GitDir  string
	Author  string
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is empty when no redis host is configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
}

// AssetsConfig selects the asset backend: git, minio or memory.
type AssetsConfig struct {
	Backend string
	BaseURL string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// ClientConfig is read by the CLI.
type ClientConfig struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

var (
	storeBackends = []string{"memory", "git", "mongo", "redis"}
	assetBackends = []string{"memory", "git", "minio"}
)

// LoadConfig loads configuration from environment variables and an optional
// .env file (ENV_FILE overrides its location).
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("STORE_GIT_DIR", "./site-data")
	v.SetDefault("STORE_AUTHOR", "siteadmin")
	v.SetDefault("MONGODB_DATABASE", "siteadmin")
	v.SetDefault("MONGODB_COLLECTION", "documents")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("MINIO_BUCKET", "site-assets")
	v.SetDefault("ASSETS_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	v.SetDefault("SITEADMIN_API_URL", "http://localhost:5001")
	v.SetDefault("SITEADMIN_TIMEOUT", 30)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("STORE_BACKEND")),
			GitDir:  v.GetString("STORE_GIT_DIR"),
			Author:  v.GetString("STORE_AUTHOR"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			PublicURL: v.GetString("MINIO_PUBLIC_URL"),
		},
		Assets: AssetsConfig{
			Backend: strings.ToLower(v.GetString("ASSETS_BACKEND")),
			BaseURL: v.GetString("ASSETS_BASE_URL"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Client: ClientConfig{
			APIURL:  v.GetString("SITEADMIN_API_URL"),
			Token:   v.GetString("SITEADMIN_TOKEN"),
			Timeout: time.Duration(v.GetInt("SITEADMIN_TIMEOUT")) * time.Second,
		},
	}

	if !oneOf(cfg.Store.Backend, storeBackends) {
		return nil, fmt.Errorf("STORE_BACKEND %q: want one of %s", cfg.Store.Backend, strings.Join(storeBackends, ", "))
	}
	if !oneOf(cfg.Assets.Backend, assetBackends) {
		return nil, fmt.Errorf("ASSETS_BACKEND %q: want one of %s", cfg.Assets.Backend, strings.Join(assetBackends, ", "))
	}
	if cfg.Store.Backend == "mongo" && cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("STORE_BACKEND=mongo needs MONGODB_URI")
	}
	if cfg.Store.Backend == "redis" && cfg.Redis.Host == "" {
		return nil, fmt.Errorf("STORE_BACKEND=redis needs REDIS_HOST")
	}

	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET is not set; write routes are unauthenticated")
	}

	return cfg, nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
