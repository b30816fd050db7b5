package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	Addr                  string        `koanf:"addr" validate:"required"`
	DBPath                string        `koanf:"db_path" validate:"required"`
	LogLevel              string        `koanf:"log_level" validate:"required,oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
	LogColors             bool          `koanf:"log_colors"`
	RateLimitPerMinute    int           `koanf:"rate_limit_per_minute" validate:"gte=0"`
	RequestTimeout        time.Duration `koanf:"request_timeout" validate:"gte=0"`
	SessionTTL            time.Duration `koanf:"session_ttl" validate:"gt=0"`
	SessionSweepInterval  time.Duration `koanf:"session_sweep_interval" validate:"gt=0"`
	WorkerCount           int           `koanf:"worker_count" validate:"gte=1,lte=64"`
	WorkerQueueSize       int           `koanf:"worker_queue_size" validate:"gte=1,lte=10000"`
	ReviewConflictRetries int           `koanf:"review_conflict_retries" validate:"gte=1,lte=20"`
	Timezone              string        `koanf:"timezone" validate:"required,timezone"`
	InitialEase           float64       `koanf:"initial_ease" validate:"gtefield=MinEase"`
	MinEase               float64       `koanf:"min_ease" validate:"gt=0"`
	FailPenalty           float64       `koanf:"fail_penalty" validate:"gte=0"`
	MaxIntervalDays       int           `koanf:"max_interval_days" validate:"gte=1"`
}

// keys lists every configuration key; the matching environment variable is
// the upper-cased key.
var keys = []string{
	"addr", "db_path", "log_level", "log_colors", "rate_limit_per_minute", "request_timeout",
	"session_ttl", "session_sweep_interval", "worker_count", "worker_queue_size",
	"review_conflict_retries", "timezone", "initial_ease", "min_ease", "fail_penalty", "max_interval_days",
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:                  ":8080",
		DBPath:                "slangflash.db",
		LogLevel:              "INFO",
		LogColors:             false,
		RateLimitPerMinute:    300,
		RequestTimeout:        15 * time.Second,
		SessionTTL:            2 * time.Hour,
		SessionSweepInterval:  5 * time.Minute,
		WorkerCount:           1,
		WorkerQueueSize:       16,
		ReviewConflictRetries: 3,
		Timezone:              "UTC",
		InitialEase:           2.5,
		MinEase:               1.3,
		FailPenalty:           0.2,
		MaxIntervalDays:       36500,
	}
}

// RegisterFlags adds one flag per key to fs, e.g. --db-path for db_path, plus
// --config for an optional YAML file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file (env CONFIG_FILE)")
	fs.String("addr", d.Addr, "HTTP listen address")
	fs.String("db-path", d.DBPath, "SQLite database path")
	fs.String("log-level", d.LogLevel, "log level (DEBUG, INFO, WARN, ERROR)")
	fs.Bool("log-colors", d.LogColors, "colorize log levels")
	fs.Int("rate-limit-per-minute", d.RateLimitPerMinute, "per-IP API request budget per minute, 0 disables")
	fs.Duration("request-timeout", d.RequestTimeout, "per-request timeout, 0 disables")
	fs.Duration("session-ttl", d.SessionTTL, "idle time after which a review session expires")
	fs.Duration("session-sweep-interval", d.SessionSweepInterval, "how often expired sessions are swept")
	fs.Int("worker-count", d.WorkerCount, "background workers")
	fs.Int("worker-queue-size", d.WorkerQueueSize, "background job queue size")
	fs.Int("review-conflict-retries", d.ReviewConflictRetries, "attempts before a concurrent review is reported as a conflict")
	fs.String("timezone", d.Timezone, "IANA zone used for day boundaries")
	fs.Float64("initial-ease", d.InitialEase, "ease factor of new cards")
	fs.Float64("min-ease", d.MinEase, "lowest ease factor")
	fs.Float64("fail-penalty", d.FailPenalty, "ease subtracted on a failed review")
	fs.Int("max-interval-days", d.MaxIntervalDays, "longest interval in days")
}

// Load reads configuration from a .env file (if present), an optional YAML
// file, environment variables and finally the explicitly set flags in fs.
// fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := make(map[string]bool, len(keys))
	for _, key := range keys {
		known[key] = true
	}
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !f.Changed || !known[key] {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil)
		if err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate reports every invalid field, named by its environment variable.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(fe))
	}
	return stderrors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	name := envName(fe.StructField())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s cannot be empty", name)
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %v", name, fe.Param(), fe.Value())
	case "timezone":
		return fmt.Errorf("%s is not a known time zone: %v", name, fe.Value())
	case "gtefield":
		return fmt.Errorf("%s must be at least %s, got %v", name, envName(fe.Param()), fe.Value())
	default:
		return fmt.Errorf("%s must be %s %s, got %v", name, fe.Tag(), fe.Param(), fe.Value())
	}
}

// envName turns a Go field name like DBPath into DB_PATH.
func envName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if i > 0 && upper {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
