package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`
	LogMode  string `yaml:"log_mode"` // prod|dev

	DBDriver string `yaml:"db_driver"` // sqlite|postgres|memory
	DBDSN    string `yaml:"db_dsn"`
	SiteID   string `yaml:"site_id"`

	// Empty RedisAddr keeps generation locks in process.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	LockTTLSec    int    `yaml:"lock_ttl_sec"`

	MaxVariants int `yaml:"max_variants"`

	EnableLocalAuth bool   `yaml:"enable_local_auth"`
	AuthHMACSecret  string `yaml:"auth_hmac_secret"`
	AdminUser       string `yaml:"admin_user"`
	AdminPassHash   string `yaml:"admin_pass_hash"` // bcrypt

	CORSOrigins        []string `yaml:"cors_origins"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_sec"`
}

func (c Config) LockTTL() time.Duration { return time.Duration(c.LockTTLSec) * time.Second }

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

func defaults() Config {
	return Config{
		Mode:               ModeOffline,
		HTTPAddr:           ":8080",
		LogMode:            "dev",
		DBDriver:           "sqlite",
		SiteID:             "local",
		LockTTLSec:         30,
		MaxVariants:        20,
		EnableLocalAuth:    true,
		AuthHMACSecret:     "dev-secret-change-me",
		AdminUser:          "admin",
		AdminPassHash:      "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji",
		ShutdownTimeoutSec: 10,
	}
}

// Load reads CONFIG_FILE (yaml) when set, then applies environment overrides.
func Load() (Config, error) {
	base := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &base); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg := fromEnv(base)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and the environment only.
func FromEnv() Config { return fromEnv(defaults()) }

func fromEnv(base Config) Config {
	mode := Mode(envOr("MODE", string(base.Mode)))
	defOrigins := strings.Join(base.CORSOrigins, ",")
	if defOrigins == "" {
		if mode == ModeOnline {
			defOrigins = "https://qbank.mindengage.ai"
		} else {
			defOrigins = "http://localhost:3000,http://localhost:3010"
		}
	}
	logMode := base.LogMode
	if os.Getenv("LOG_MODE") == "" && mode == ModeOnline && base.LogMode == "dev" {
		logMode = "prod"
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", base.HTTPAddr),
		LogMode:            envOr("LOG_MODE", logMode),
		DBDriver:           envOr("DB_DRIVER", base.DBDriver),
		DBDSN:              envOr("DB_DSN", base.DBDSN),
		SiteID:             envOr("SITE_ID", base.SiteID),
		RedisAddr:          envOr("REDIS_ADDR", base.RedisAddr),
		RedisPassword:      envOr("REDIS_PASSWORD", base.RedisPassword),
		RedisDB:            envInt("REDIS_DB", base.RedisDB),
		LockTTLSec:         envInt("LOCK_TTL_SEC", base.LockTTLSec),
		MaxVariants:        envInt("MAX_VARIANTS", base.MaxVariants),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", base.EnableLocalAuth),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", base.AuthHMACSecret),
		AdminUser:          envOr("ADMIN_USER", base.AdminUser),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", base.AdminPassHash),
		CORSOrigins:        csvOr("CORS_ORIGINS", defOrigins),
		ShutdownTimeoutSec: envInt("SHUTDOWN_TIMEOUT_SEC", base.ShutdownTimeoutSec),
	}
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MaxVariants < 1 {
		return fmt.Errorf("config: MAX_VARIANTS must be positive, got %d", c.MaxVariants)
	}
	if c.LockTTLSec < 1 {
		return fmt.Errorf("config: LOCK_TTL_SEC must be positive, got %d", c.LockTTLSec)
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == defaults().AuthHMACSecret {
		return fmt.Errorf("config: AUTH_HMAC_SECRET must be set in online mode")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
