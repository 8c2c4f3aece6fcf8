package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"noticeboard/repository"
)

// Config is the service configuration. Values come from an optional YAML
// file, then environment variables (a .env file is loaded first).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Admin     AdminConfig     `yaml:"admin"`
	Cache     CacheConfig     `yaml:"cache"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Editor    EditorConfig    `yaml:"editor"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	Domain        string `yaml:"domain"`
	SessionSecret string `yaml:"session_secret"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

type DatabaseConfig struct {
	Driver      string                   `yaml:"driver"` // "sqlite", "postgres" or "surrealdb"
	SQLitePath  string                   `yaml:"sqlite_path"`
	DSN         string                   `yaml:"dsn"` // postgres connection string
	AnalyticsDB string                   `yaml:"analytics_db"`
	Surreal     repository.SurrealConfig `yaml:"surreal"`
}

type AdminConfig struct {
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"` // bcrypt hash seeded for Email
	Emails       []string `yaml:"emails"`        // accounts allowed into the admin API
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
	TTL string `yaml:"ttl"`
}

type ExtractorConfig struct {
	URL        string  `yaml:"url"` // empty means the built-in HTML extractor
	APIKey     string  `yaml:"api_key"`
	Timeout    string  `yaml:"timeout"`
	MaxRetries int     `yaml:"max_retries"`
	RateLimit  float64 `yaml:"rate_limit"` // requests per second
	Burst      int     `yaml:"burst"`
}

type EditorConfig struct {
	SessionTTL string `yaml:"session_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Domain: "http://localhost:8080"},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "noticeboard.db",
			Surreal:    repository.SurrealConfig{Namespace: "noticeboard", Database: "noticeboard"},
		},
		Cache:     CacheConfig{Dir: "cache", TTL: "10m"},
		Extractor: ExtractorConfig{Timeout: "30s", MaxRetries: 3, RateLimit: 1, Burst: 2},
		Editor:    EditorConfig{SessionTTL: "2h"},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// EnvPath names the variable holding the YAML config path.
const EnvPath = "NOTICEBOARD_CONFIG"

// Load reads path (skipped when empty or missing) and applies environment
// overrides on top.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Server.Domain, "DOMAIN")
	set(&c.Server.SessionSecret, "SESSION_SECRET")
	if v := getenv("SECURE_COOKIES"); v != "" {
		c.Server.SecureCookies, _ = strconv.ParseBool(v)
	}

	set(&c.Database.Driver, "DB_DRIVER")
	set(&c.Database.SQLitePath, "SQLITE_DB")
	set(&c.Database.DSN, "DATABASE_URL")
	set(&c.Database.AnalyticsDB, "ANALYTICS_DB")
	set(&c.Database.Surreal.URL, "SURREALDB_URL")
	set(&c.Database.Surreal.Namespace, "SURREALDB_NS")
	set(&c.Database.Surreal.Database, "SURREALDB_DB")
	set(&c.Database.Surreal.Username, "SURREALDB_USER")
	set(&c.Database.Surreal.Password, "SURREALDB_PASS")

	if v := getenv("ADMIN_EMAILS"); v != "" {
		c.Admin.Emails = splitList(v)
	}
	set(&c.Admin.Email, "ADMIN_EMAIL")
	set(&c.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")

	set(&c.Cache.Dir, "CACHE_DIR")
	set(&c.Cache.TTL, "CACHE_TTL")

	set(&c.Extractor.URL, "EXTRACTOR_URL")
	set(&c.Extractor.APIKey, "EXTRACTOR_API_KEY")
	set(&c.Extractor.Timeout, "EXTRACTOR_TIMEOUT")

	set(&c.Editor.SessionTTL, "EDITOR_SESSION_TTL")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case "surrealdb":
		if c.Database.Surreal.URL == "" {
			return fmt.Errorf("database.surreal.url is required for the surrealdb driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	for _, d := range []string{c.Cache.TTL, c.Extractor.Timeout, c.Editor.SessionTTL} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}
	return nil
}

// IsAdminEmail reports whether email may use the admin API. With no
// allow-list and no seeded admin every registered account is admitted.
func (c AdminConfig) IsAdminEmail(email string) bool {
	allowed := c.Emails
	if c.Email != "" {
		allowed = append([]string{c.Email}, allowed...)
	}
	if len(allowed) == 0 {
		return true
	}
	for _, e := range allowed {
		if strings.EqualFold(e, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func (c CacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 10*time.Minute)
}

func (c ExtractorConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

func (c EditorConfig) GetSessionTTL() time.Duration {
	return parseDuration(c.SessionTTL, 2*time.Hour)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
