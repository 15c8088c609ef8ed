package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ScheduleOff disables the in-process cycle trigger (use cmd/checker from an
// external scheduler instead).
const ScheduleOff = "off"

type Config struct {
	Addr        string `yaml:"api_addr"`     // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir      string `yaml:"log_dir"`      // logs directory
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	DatabaseURL string `yaml:"database_url"` // postgres://..., sqlite://path, or empty for in-memory

	IngestAPIKeys  []string `yaml:"ingest_api_keys"`
	AdminAPIKeys   []string `yaml:"admin_api_keys"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Telegram TelegramConfig `yaml:"telegram"`

	CheckSchedule  string `yaml:"check_schedule"`   // cron spec, or "off"
	CycleTimeoutMS int    `yaml:"cycle_timeout_ms"` // wall-clock budget per check cycle

	PublicRPM   int `yaml:"public_rpm"`
	PublicBurst int `yaml:"public_burst"`
	AdminRPM    int `yaml:"admin_rpm"`
	AdminBurst  int `yaml:"admin_burst"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	envErrs error // malformed environment values, reported by Validate
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

// CycleTimeout is CycleTimeoutMS as a duration.
func (c Config) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutMS) * time.Millisecond
}

// TriggerEnabled reports whether cmd/api should run the cron trigger.
func (c Config) TriggerEnabled() bool {
	return c.CheckSchedule != ScheduleOff
}

// FromEnv builds the config from defaults and environment variables only.
func FromEnv() Config {
	var c Config
	c.applyEnv()
	c.setDefaults()
	return c
}

// Load reads the optional YAML file at path, then lets environment variables
// override it, fills defaults and validates the result.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyEnv()
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = splitCSV(v)
		}
	}
	num := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.envErrs = multierr.Append(c.envErrs, fmt.Errorf("%s: %q is not a number", name, v))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.envErrs = multierr.Append(c.envErrs, fmt.Errorf("%s: %q is not a boolean", name, v))
				return
			}
			*dst = b
		}
	}

	str("API_ADDR", &c.Addr)
	str("LOG_DIR", &c.LogDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("DATABASE_URL", &c.DatabaseURL)
	list("INGEST_API_KEYS", &c.IngestAPIKeys)
	list("ADMIN_API_KEYS", &c.AdminAPIKeys)
	list("ALLOWED_ORIGINS", &c.AllowedOrigins)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("TELEGRAM_API_BASE", &c.Telegram.APIBase)
	str("CHECK_SCHEDULE", &c.CheckSchedule)
	num("CYCLE_TIMEOUT_MS", &c.CycleTimeoutMS)
	num("PUBLIC_RPM", &c.PublicRPM)
	num("PUBLIC_BURST", &c.PublicBurst)
	num("ADMIN_RPM", &c.AdminRPM)
	num("ADMIN_BURST", &c.AdminBurst)
	flag("TRUST_PROXY_HEADERS", &c.TrustProxyHeaders)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = "https://api.telegram.org"
	}
	if c.CheckSchedule == "" {
		c.CheckSchedule = "@every 1m"
	}
	if c.CycleTimeoutMS == 0 {
		c.CycleTimeoutMS = 50_000
	}
	if c.PublicRPM == 0 {
		c.PublicRPM = 600
	}
	if c.PublicBurst == 0 {
		c.PublicBurst = 100
	}
	if c.AdminRPM == 0 {
		c.AdminRPM = 120
	}
	if c.AdminBurst == 0 {
		c.AdminBurst = 30
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	err := c.envErrs
	if c.Addr == "" {
		err = multierr.Append(err, fmt.Errorf("api_addr is required"))
	}
	if _, lerr := zapcore.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", lerr))
	}
	if _, _, serr := SplitDatabaseURL(c.DatabaseURL); serr != nil {
		err = multierr.Append(err, serr)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		err = multierr.Append(err, fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together"))
	}
	if c.TriggerEnabled() {
		if _, perr := cron.ParseStandard(c.CheckSchedule); perr != nil {
			err = multierr.Append(err, fmt.Errorf("check_schedule %q: %w", c.CheckSchedule, perr))
		}
	}
	if c.CycleTimeoutMS < 0 {
		err = multierr.Append(err, fmt.Errorf("cycle_timeout_ms must be positive"))
	}
	for name, v := range map[string]int{
		"public_rpm": c.PublicRPM, "public_burst": c.PublicBurst,
		"admin_rpm": c.AdminRPM, "admin_burst": c.AdminBurst,
	} {
		if v < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative", name))
		}
	}
	return err
}

// Backend names returned by SplitDatabaseURL.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// SplitDatabaseURL maps DATABASE_URL to a store backend and the DSN that
// backend expects.
func SplitDatabaseURL(raw string) (backend, dsn string, err error) {
	switch {
	case raw == "":
		return BackendMemory, "", nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return BackendPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("database_url: sqlite:// needs a file path")
		}
		return BackendSQLite, path, nil
	default:
		return "", "", fmt.Errorf("database_url: unsupported scheme in %q", redactURL(raw))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// redactURL drops anything that may be a password before the host.
func redactURL(raw string) string {
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		if scheme := strings.Index(raw, "://"); scheme >= 0 && scheme < at {
			return raw[:scheme+3] + "***" + raw[at:]
		}
	}
	return raw
}
