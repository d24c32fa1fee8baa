package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	JWTSecret string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string
	PresignExpiry time.Duration

	PaymentsBaseURL string
	PaymentsAPIKey  string

	OpenAIAPIKey string
	AIModel      string

	LeaderboardCacheTTL time.Duration
	LifecycleInterval   time.Duration
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
	v.SetEnvPrefix("PITCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PitchArena API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "pitcharena/covers")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("presign.expiry", "15m")
	v.SetDefault("leaderboard.cache_ttl", "30s")
	v.SetDefault("lifecycle.interval", "1m")
	v.SetDefault("ai.model", "gpt-4o-mini")

	presignExpiry, err := time.ParseDuration(v.GetString("presign.expiry"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid presign expiry: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("leaderboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	lifecycleInterval, err := time.ParseDuration(v.GetString("lifecycle.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid lifecycle interval: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		S3Region:            v.GetString("s3.region"),
		S3Bucket:            v.GetString("s3.bucket"),
		S3AccessKey:         v.GetString("s3.access_key"),
		S3SecretKey:         v.GetString("s3.secret_key"),
		S3Endpoint:          v.GetString("s3.endpoint"),
		PresignExpiry:       presignExpiry,
		PaymentsBaseURL:     v.GetString("payments.base_url"),
		PaymentsAPIKey:      v.GetString("payments.api_key"),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		AIModel:             v.GetString("ai.model"),
		LeaderboardCacheTTL: cacheTTL,
		LifecycleInterval:   lifecycleInterval,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
