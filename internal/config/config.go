// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port            string `mapstructure:"PORT"`
	Env             string `mapstructure:"APP_ENV"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES"`
	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags    string `mapstructure:"FEATURE_FLAGS"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBPath     string `mapstructure:"DB_PATH"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	GeminiAPIKey     string  `mapstructure:"GEMINI_API_KEY"`
	GeminiTextModel  string  `mapstructure:"GEMINI_TEXT_MODEL"`
	GeminiImageModel string  `mapstructure:"GEMINI_IMAGE_MODEL"`
	GenerationRPS    float64 `mapstructure:"GENERATION_RPS"`
	GenerationBurst  int     `mapstructure:"GENERATION_BURST"`

	MediaEndpoint    string `mapstructure:"MEDIA_ENDPOINT"`
	MediaAccessKey   string `mapstructure:"MEDIA_ACCESS_KEY"`
	MediaSecretKey   string `mapstructure:"MEDIA_SECRET_KEY"`
	MediaBucket      string `mapstructure:"MEDIA_BUCKET"`
	MediaRegion      string `mapstructure:"MEDIA_REGION"`
	MediaPublicURL   string `mapstructure:"MEDIA_PUBLIC_URL"`
	MediaUseSSL      bool   `mapstructure:"MEDIA_USE_SSL"`
	ImageMaxUploadMB int    `mapstructure:"IMAGE_MAX_UPLOAD_MB"`

	DailyPostLimit  int  `mapstructure:"DAILY_POST_LIMIT"`
	ReportThreshold int  `mapstructure:"REPORT_THRESHOLD"`
	SeedDemoPosts   bool `mapstructure:"SEED_DEMO_POSTS"`
	SeedFakePosts   int  `mapstructure:"SEED_FAKE_POSTS"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("FEATURE_FLAGS", "")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "soulspark.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "soulspark")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_URL", "localhost:6379")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("GENERATION_RPS", 2.0)
	v.SetDefault("GENERATION_BURST", 5)

	v.SetDefault("MEDIA_ENDPOINT", "")
	v.SetDefault("MEDIA_ACCESS_KEY", "")
	v.SetDefault("MEDIA_SECRET_KEY", "")
	v.SetDefault("MEDIA_BUCKET", "soulspark-backgrounds")
	v.SetDefault("MEDIA_REGION", "us-east-1")
	v.SetDefault("MEDIA_PUBLIC_URL", "")
	v.SetDefault("MEDIA_USE_SSL", false)
	v.SetDefault("IMAGE_MAX_UPLOAD_MB", 10)

	v.SetDefault("DAILY_POST_LIMIT", 10)
	v.SetDefault("REPORT_THRESHOLD", 15)
	v.SetDefault("SEED_DEMO_POSTS", true)
	v.SetDefault("SEED_FAKE_POSTS", 0)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// TokenTTL returns the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// MediaEnabled reports whether object storage is configured for backgrounds.
func (c *Config) MediaEnabled() bool {
	return c.MediaEndpoint != "" && c.MediaAccessKey != "" && c.MediaSecretKey != ""
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTLMinutes <= 0 {
		return errors.New("TOKEN_TTL_MINUTES must be positive")
	}
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.DailyPostLimit <= 0 {
		return errors.New("DAILY_POST_LIMIT must be positive")
	}
	if c.ReportThreshold <= 0 {
		return errors.New("REPORT_THRESHOLD must be positive")
	}
	if c.SeedFakePosts < 0 {
		return errors.New("SEED_FAKE_POSTS cannot be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.EqualFold(c.DBDriver, "postgres") && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if c.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY is empty; generation endpoints will return fallback responses")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
