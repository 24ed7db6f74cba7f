package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	applog "wapistore/internal/log"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"wapistore.db"`

	LogFile   string `envconfig:"LOG_FILE"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer    string        `envconfig:"JWT_ISSUER" default:"wapistore"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`

	BodyLimit      int   `envconfig:"BODY_LIMIT" default:"6291456"`
	UploadMaxBytes int64 `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`

	CloudinaryCloudName    string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryUploadPreset string `envconfig:"CLOUDINARY_UPLOAD_PRESET"`
	CloudinaryBaseURL      string `envconfig:"CLOUDINARY_BASE_URL" default:"https://api.cloudinary.com/v1_1"`

	RedisURL     string   `envconfig:"REDIS_URL"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`

	SuperAdminEmail    string `envconfig:"SUPERADMIN_EMAIL"`
	SuperAdminPassword string `envconfig:"SUPERADMIN_PASSWORD"`
	SuperAdminName     string `envconfig:"SUPERADMIN_NAME" default:"Super Admin"`
	SeedDemo           bool   `envconfig:"SEED_DEMO" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "pgx" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	lg := applog.Logger()
	lg.Info().
		Str("port", cfg.Port).
		Str("db_driver", cfg.DBDriver).
		Str("log_file", cfg.LogFile).
		Bool("redis", cfg.RedisURL != "").
		Int("kafka_brokers", len(cfg.KafkaBrokers)).
		Bool("uploads", cfg.UploadsEnabled()).
		Msg("config.loaded")
	return cfg, nil
}

// UploadsEnabled reports whether the Cloudinary relay has enough settings to run.
func (c Config) UploadsEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryUploadPreset != ""
}
