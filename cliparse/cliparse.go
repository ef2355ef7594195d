package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/danielhkuo/quickly-predict/capacity"
	"github.com/danielhkuo/quickly-predict/validate"
)

type Config struct {
	Port         int    `koanf:"port"`
	DatabaseURL  string `koanf:"database_url"`
	DatabaseType string `koanf:"database_type"`

	// Identity
	IPHashSalt        string `koanf:"ip_hash_salt"`
	IPHashSaltVersion int    `koanf:"ip_hash_salt_version"`
	TrustProxyHeaders bool   `koanf:"trust_proxy_headers"`
	CookieSecure      bool   `koanf:"cookie_secure"`

	// Redis (optional; memory fallbacks when empty)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Bot verification (disabled when the secret is empty)
	TurnstileSecret string `koanf:"turnstile_secret"`
	TurnstileURL    string `koanf:"turnstile_url"`

	// Capacity
	DailyBudget       int64   `koanf:"daily_budget"`
	ThresholdElevated float64 `koanf:"threshold_elevated"`
	ThresholdHigh     float64 `koanf:"threshold_high"`
	ThresholdCritical float64 `koanf:"threshold_critical"`
	ThresholdExceeded float64 `koanf:"threshold_exceeded"`

	// Predictions
	ReferenceDate  string `koanf:"reference_date"`
	MinDate        string `koanf:"min_date"`
	MaxDate        string `koanf:"max_date"`
	MetadataMaxLen int    `koanf:"metadata_max_len"`
	MinSampleSize  int    `koanf:"min_sample_size"`

	StatsCacheTTL    time.Duration `koanf:"stats_cache_ttl"`
	ExtendedCacheTTL time.Duration `koanf:"extended_cache_ttl"`
	WriteRateLimit   int           `koanf:"write_rate_limit"`
	WriteRateWindow  time.Duration `koanf:"write_rate_window"`
	AllowedOrigins   []string      `koanf:"allowed_origins"`
	OpsLogRetention  time.Duration `koanf:"ops_log_retention"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	// PurgeOpsLog runs one ops log purge and exits. Flag only.
	PurgeOpsLog bool `koanf:"-"`
}

// Defaults returns the configuration used when nothing overrides a key.
func Defaults() Config {
	return Config{
		Port:              3318,
		DatabaseType:      "sqlite",
		IPHashSaltVersion: 1,
		DailyBudget:       100_000,
		ThresholdElevated: 0.80,
		ThresholdHigh:     0.90,
		ThresholdCritical: 0.95,
		ThresholdExceeded: 1.00,
		ReferenceDate:     "2026-11-19",
		MinDate:           "2025-01-01",
		MaxDate:           "2125-12-31",
		MetadataMaxLen:    200,
		MinSampleSize:     50,
		StatsCacheTTL:     5 * time.Minute,
		ExtendedCacheTTL:  15 * time.Minute,
		WriteRateLimit:    10,
		WriteRateWindow:   time.Minute,
		AllowedOrigins:    []string{"*"},
		OpsLogRetention:   90 * 24 * time.Hour,
		LogLevel:          "info",
	}
}

// ParseFlags builds the configuration. Precedence (low -> high):
//  1. defaults
//  2. YAML file named by -config or CONFIG_FILE
//  3. .env file (never overrides real environment variables)
//  4. environment variables (PORT, DATABASE_URL, IP_HASH_SALT, ...)
//  5. command-line flags
func ParseFlags(args []string) (Config, error) {
	var flags Config
	var configFile, envFile string

	fs := flag.NewFlagSet("quickly-predict", flag.ContinueOnError)

	fs.StringVar(&configFile, "config", "", "YAML config file (or CONFIG_FILE env)")
	fs.StringVar(&envFile, "env-file", ".env", "Optional .env file")

	// Network config (can be CLI args or env)
	fs.IntVar(&flags.Port, "p", 0, "Server port")
	fs.StringVar(&flags.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&flags.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&flags.RedisAddr, "redis", "", "Redis address (optional)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&flags.IPHashSalt, "ip-salt", "", "Network hash salt (prefer env)")

	fs.BoolVar(&flags.PurgeOpsLog, "purge-ops-log", false, "Purge expired ops log entries and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	// Map PORT -> port, IP_HASH_SALT -> ip_hash_salt; ignore unrelated vars
	known := knownKeys()
	envProvider := env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	// CLI overrides everything
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = flags.Port
		case "d":
			cfg.DatabaseURL = flags.DatabaseURL
		case "t":
			cfg.DatabaseType = flags.DatabaseType
		case "redis":
			cfg.RedisAddr = flags.RedisAddr
		case "ip-salt":
			cfg.IPHashSalt = flags.IPHashSalt
		case "purge-ops-log":
			cfg.PurgeOpsLog = flags.PurgeOpsLog
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func knownKeys() map[string]bool {
	keys := []string{
		"port", "database_url", "database_type",
		"ip_hash_salt", "ip_hash_salt_version", "trust_proxy_headers", "cookie_secure",
		"redis_addr", "redis_password", "redis_db",
		"turnstile_secret", "turnstile_url",
		"daily_budget", "threshold_elevated", "threshold_high", "threshold_critical", "threshold_exceeded",
		"reference_date", "min_date", "max_date", "metadata_max_len", "min_sample_size",
		"stats_cache_ttl", "extended_cache_ttl", "write_rate_limit", "write_rate_window",
		"allowed_origins", "ops_log_retention", "log_level", "log_file",
	}
	m := make(map[string]bool, len(keys))
	for _, key := range keys {
		m[key] = true
	}
	return m
}

// Validate fails loudly on configuration that would silently weaken
// deduplication or admission control.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return fmt.Errorf("unsupported DATABASE_TYPE %q (sqlite or postgres)", c.DatabaseType)
	}

	// Secrets - MUST be provided
	if c.IPHashSalt == "" {
		return errors.New("IP_HASH_SALT required")
	}
	if len(c.IPHashSalt) < 16 {
		return errors.New("IP_HASH_SALT must be at least 16 characters")
	}
	if c.IPHashSaltVersion < 1 {
		return errors.New("IP_HASH_SALT_VERSION must be >= 1")
	}

	if c.DailyBudget <= 0 {
		return errors.New("DAILY_BUDGET must be positive")
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}

	ref, err := time.Parse(validate.DateLayout, c.ReferenceDate)
	if err != nil {
		return fmt.Errorf("invalid REFERENCE_DATE %q", c.ReferenceDate)
	}
	lo, err := time.Parse(validate.DateLayout, c.MinDate)
	if err != nil {
		return fmt.Errorf("invalid MIN_DATE %q", c.MinDate)
	}
	hi, err := time.Parse(validate.DateLayout, c.MaxDate)
	if err != nil {
		return fmt.Errorf("invalid MAX_DATE %q", c.MaxDate)
	}
	if lo.After(ref) || ref.After(hi) {
		return errors.New("dates must satisfy MIN_DATE <= REFERENCE_DATE <= MAX_DATE")
	}

	if c.MetadataMaxLen <= 0 {
		return errors.New("METADATA_MAX_LEN must be positive")
	}
	if c.MinSampleSize < 1 {
		return errors.New("MIN_SAMPLE_SIZE must be >= 1")
	}
	if c.StatsCacheTTL <= 0 || c.ExtendedCacheTTL < c.StatsCacheTTL {
		return errors.New("cache TTLs must be positive and EXTENDED_CACHE_TTL >= STATS_CACHE_TTL")
	}
	if c.WriteRateLimit <= 0 || c.WriteRateWindow <= 0 {
		return errors.New("WRITE_RATE_LIMIT and WRITE_RATE_WINDOW must be positive")
	}
	return nil
}

// Thresholds returns the capacity thresholds as fractions of the budget.
func (c Config) Thresholds() capacity.Thresholds {
	return capacity.Thresholds{
		Elevated: c.ThresholdElevated,
		High:     c.ThresholdHigh,
		Critical: c.ThresholdCritical,
		Exceeded: c.ThresholdExceeded,
	}
}

// Reference returns the parsed reference date. Validate has already checked it.
func (c Config) Reference() time.Time {
	t, _ := time.Parse(validate.DateLayout, c.ReferenceDate)
	return t
}
