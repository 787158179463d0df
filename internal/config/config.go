package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DataConfig struct {
	CSVFile string
	// ZeroBoxesPolicy is "reject" or "null".
	ZeroBoxesPolicy string
	PreviewRows     int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads configuration from the environment. Values from a .env file in
// the working directory are applied first and never override real env vars.
// Malformed values are reported together with validation failures rather
// than replaced by defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	env := &envReader{}
	cfg := &Config{
		Server: ServerConfig{
			Host:            env.String("SERVER_HOST", "localhost"),
			Port:            env.Int("SERVER_PORT", 8084),
			ReadTimeout:     env.Duration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    env.Duration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     env.Duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.Duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			CSVFile:         env.String("CSV_FILE", "chocosales.csv"),
			ZeroBoxesPolicy: strings.ToLower(env.String("ZERO_BOXES_POLICY", "reject")),
			PreviewRows:     env.Int("PREVIEW_ROWS", 5),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(env.String("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.String("LOG_FORMAT", "json")),
		},
		Security: SecurityConfig{
			EnableRateLimit: env.Bool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    env.Int("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  env.Int("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  env.List("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  env.List("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := errors.Join(env.errs, cfg.validate()); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var (
	zeroBoxesPolicies = []string{"reject", "null"}
	logLevels         = []string{"debug", "info", "warn", "error"}
	logFormats        = []string{"json", "text"}
)

// validate reports every problem at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")
	check(c.Data.CSVFile != "", "CSV file path cannot be empty")
	check(slices.Contains(zeroBoxesPolicies, c.Data.ZeroBoxesPolicy),
		"invalid zero boxes policy %q, must be one of: %s", c.Data.ZeroBoxesPolicy, strings.Join(zeroBoxesPolicies, ", "))
	check(c.Data.PreviewRows >= 0, "preview rows must not be negative, got %d", c.Data.PreviewRows)
	check(slices.Contains(logLevels, c.Logger.Level),
		"invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(logLevels, ", "))
	check(slices.Contains(logFormats, c.Logger.Format),
		"invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(logFormats, ", "))
	check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
	check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")

	return errors.Join(errs...)
}

// envReader reads typed environment variables, remembering every value that
// failed to parse.
type envReader struct {
	errs error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = errors.Join(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) String(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

func (e *envReader) Int(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) Bool(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e *envReader) Duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

// List splits a comma separated value, dropping empty entries.
func (e *envReader) List(key string, def []string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
