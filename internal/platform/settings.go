package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names an optional YAML settings file for the daemon.
const ConfigPathEnvVar = "CONFIG_PATH"

// Settings configures townscoped.
type Settings struct {
	Server   ServerSettings   `koanf:"server"`
	Database DatabaseSettings `koanf:"database"`
	Storage  StorageSettings  `koanf:"storage"`
	Cache    CacheSettings    `koanf:"cache"`
	Security SecuritySettings `koanf:"security"`
	Logging  LoggingSettings  `koanf:"logging"`

	// ScoringConfig is an optional scoring config YAML; defaults otherwise.
	ScoringConfig string `koanf:"scoring_config"`
}

type ServerSettings struct {
	Port        string   `koanf:"port" validate:"required,numeric"`
	CORSOrigins []string `koanf:"cors_origins"`
	RankWorkers int      `koanf:"rank_workers" validate:"gte=0,lte=256"`
}

type DatabaseSettings struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type StorageSettings struct {
	Backend   string `koanf:"backend" validate:"oneof=local s3 gcs"`
	LocalPath string `koanf:"local_path" validate:"required_if=Backend local"`
	S3Bucket  string `koanf:"s3_bucket" validate:"required_if=Backend s3"`
	S3Region  string `koanf:"s3_region"`
	// S3Endpoint points at an S3-compatible service such as MinIO.
	S3Endpoint string `koanf:"s3_endpoint"`
	GCSBucket  string `koanf:"gcs_bucket" validate:"required_if=Backend gcs"`
}

type CacheSettings struct {
	Backend    string `koanf:"backend" validate:"oneof=lru badger none"`
	Size       int    `koanf:"size" validate:"gte=0"`
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`
}

type SecuritySettings struct {
	WebhookSecret  string  `koanf:"webhook_secret"`
	APIKey         string  `koanf:"api_key"`
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=0"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For
	// header the rate limiter believes. Empty means none.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
}

type LoggingSettings struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// DefaultSettings returns the settings used when nothing overrides them.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Port: "8080",
		},
		Database: DatabaseSettings{
			URL:         "postgres://localhost:5432/townscope?sslmode=disable",
			AutoMigrate: true,
		},
		Storage: StorageSettings{
			Backend:   "local",
			LocalPath: "/tmp/townscope-data",
		},
		Cache: CacheSettings{
			Backend:    "lru",
			Size:       256,
			BadgerPath: "/tmp/townscope-cache",
		},
		Security: SecuritySettings{
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings maps environment variable names to settings paths.
var envMappings = map[string]string{
	"port":               "server.port",
	"cors_origins":       "server.cors_origins",
	"rank_workers":       "server.rank_workers",
	"database_url":       "database.url",
	"auto_migrate":       "database.auto_migrate",
	"storage_backend":    "storage.backend",
	"local_storage_path": "storage.local_path",
	"s3_bucket":          "storage.s3_bucket",
	"s3_region":          "storage.s3_region",
	"s3_endpoint":        "storage.s3_endpoint",
	"gcs_bucket":         "storage.gcs_bucket",
	"cache_backend":      "cache.backend",
	"cache_size":         "cache.size",
	"badger_path":        "cache.badger_path",
	"webhook_secret":     "security.webhook_secret",
	"api_key":            "security.api_key",
	"rate_limit_rps":     "security.rate_limit_rps",
	"rate_limit_burst":   "security.rate_limit_burst",
	"trusted_proxies":    "security.trusted_proxies",
	"log_level":          "logging.level",
	"log_format":         "logging.format",
	"scoring_config":     "scoring_config",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// LoadSettings layers defaults, the optional CONFIG_PATH file, and the
// environment, in that order of increasing priority. A .env file in the
// working directory is loaded first and never overrides the real environment.
func LoadSettings() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Comma-separated lists arrive from the environment as one string.
	if v, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(v)); err != nil {
			return nil, fmt.Errorf("set cors origins: %w", err)
		}
	}

	if v, ok := k.Get("security.trusted_proxies").(string); ok {
		if err := k.Set("security.trusted_proxies", splitList(v)); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field constraints.
func (s *Settings) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate settings: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
