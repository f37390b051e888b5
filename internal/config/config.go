package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/csvimport"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Sentinel errors, wrapped in *OpError.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrMissingVar    = errors.New("missing variable")
)

// OpError wraps a config failure with the operation and, when relevant, the file.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (path=%s): %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Config is the runtime configuration shared by the server and the CLI.
type Config struct {
	BackendURL     string        `yaml:"backend_url"`
	BackendToken   string        `yaml:"backend_token"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	Addr     string `yaml:"addr"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	AppEnv   string `yaml:"app_env"`
	CSRFKey  string `yaml:"csrf_key"`

	CutoverMonth int      `yaml:"academic_year_cutover_month"`
	IDAliases    []string `yaml:"id_aliases"`

	ResendAPIKey string   `yaml:"resend_api_key"`
	ReportFrom   string   `yaml:"report_from"`
	ReportTo     []string `yaml:"report_to"`

	SlowQuery   time.Duration `yaml:"slow_query"`
	SlowRequest time.Duration `yaml:"slow_request"`
	RateLimit   int           `yaml:"rate_limit_per_minute"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		BackendTimeout: 30 * time.Second,
		Addr:           ":8080",
		DBPath:         "orgconsole.db",
		LogLevel:       "info",
		AppEnv:         EnvDevelopment,
		CutoverMonth:   int(academicyear.DefaultCutover),
		IDAliases:      csvimport.DefaultIDAliases,
		ReportFrom:     "Org Console <console@localhost>",
		SlowQuery:      50 * time.Millisecond,
		SlowRequest:    200 * time.Millisecond,
		RateLimit:      120,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path is
// non-empty), then environment variables. A .env file in the working directory is
// loaded into the environment first when present.
// PRE: none
// POST: Returns a validated Config or an *OpError
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &OpError{Op: "config.read", Path: path, Err: err}
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, &OpError{Op: "config.parse", Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidConfig, err)}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.BackendToken = getEnv("BACKEND_TOKEN", c.BackendToken)
	c.Addr = getEnv("ADDR", c.Addr)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.CSRFKey = getEnv("CSRF_KEY", c.CSRFKey)
	c.ResendAPIKey = getEnv("RESEND_API_KEY", c.ResendAPIKey)
	c.ReportFrom = getEnv("REPORT_FROM", c.ReportFrom)
	c.ReportTo = getEnvList("REPORT_TO", c.ReportTo)
	c.IDAliases = getEnvList("ID_ALIASES", c.IDAliases)

	var err error
	if c.BackendTimeout, err = getEnvDuration("BACKEND_TIMEOUT", c.BackendTimeout); err != nil {
		return err
	}
	if c.SlowQuery, err = getEnvDuration("SLOW_QUERY", c.SlowQuery); err != nil {
		return err
	}
	if c.SlowRequest, err = getEnvDuration("SLOW_REQUEST", c.SlowRequest); err != nil {
		return err
	}
	if c.CutoverMonth, err = getEnvInt("ACADEMIC_YEAR_CUTOVER_MONTH", c.CutoverMonth); err != nil {
		return err
	}
	if c.RateLimit, err = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimit); err != nil {
		return err
	}
	return nil
}

// Validate checks required values and ranges.
// POST: Returns an *OpError wrapping ErrMissingVar or ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return &OpError{Op: "config.validate", Err: fmt.Errorf("%w: BACKEND_URL", ErrMissingVar)}
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return &OpError{Op: "config.validate", Err: fmt.Errorf("%w: BACKEND_URL must be an http(s) URL", ErrInvalidConfig)}
	}
	if c.CutoverMonth < 1 || c.CutoverMonth > 12 {
		return &OpError{Op: "config.validate", Err: fmt.Errorf("%w: ACADEMIC_YEAR_CUTOVER_MONTH must be 1-12", ErrInvalidConfig)}
	}
	if c.BackendTimeout <= 0 {
		return &OpError{Op: "config.validate", Err: fmt.Errorf("%w: BACKEND_TIMEOUT must be positive", ErrInvalidConfig)}
	}
	if c.CSRFKey != "" {
		if _, err := c.CSRFKeyBytes(); err != nil {
			return err
		}
	} else if c.IsProduction() {
		return &OpError{Op: "config.validate", Err: fmt.Errorf("%w: CSRF_KEY is required in production", ErrMissingVar)}
	}
	return nil
}

// IsProduction reports whether the console runs in production mode.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// CSRFKeyBytes decodes the 64-hex-character CSRF key.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, &OpError{Op: "config.csrf_key", Err: fmt.Errorf("%w: CSRF_KEY must be 64 hex characters", ErrInvalidConfig)}
	}
	return key, nil
}

// Cutover returns the month in which a new academic year begins.
func (c Config) Cutover() time.Month {
	return time.Month(c.CutoverMonth)
}

// CurrentAcademicYear is the single place the active academic year is derived.
func (c Config) CurrentAcademicYear(now time.Time) academicyear.Range {
	return academicyear.Current(now, c.Cutover())
}

// ReportsEnabled reports whether submission reports should be emailed.
func (c Config) ReportsEnabled() bool {
	return c.ResendAPIKey != "" && len(c.ReportTo) > 0
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &OpError{Op: "config.env", Err: fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)}
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &OpError{Op: "config.env", Err: fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, v)}
	}
	return d, nil
}
