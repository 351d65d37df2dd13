package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MODE", "HTTP_ADDR", "LOG_MODE", "DB_DRIVER", "DB_DSN", "SITE_ID",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOCK_TTL_SEC", "MAX_VARIANTS",
		"ENABLE_LOCAL_AUTH", "AUTH_HMAC_SECRET", "ADMIN_USER", "ADMIN_PASS_HASH",
		"CORS_ORIGINS", "SHUTDOWN_TIMEOUT_SEC", "CONFIG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.MaxVariants != 20 || c.LockTTL() != 30*time.Second {
		t.Fatalf("max=%d ttl=%s", c.MaxVariants, c.LockTTL())
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("cors = %v", c.CORSOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_VARIANTS", "50")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOCK_TTL_SEC", "not-a-number")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_LOCAL_AUTH", "no")
	t.Setenv("MODE", "online")

	c := FromEnv()
	if c.MaxVariants != 50 || c.RedisDB != 3 {
		t.Fatalf("ints not applied: %+v", c)
	}
	if c.LockTTLSec != 30 {
		t.Fatalf("bad int should keep default, got %d", c.LockTTLSec)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors = %v", c.CORSOrigins)
	}
	if c.EnableLocalAuth {
		t.Fatal("ENABLE_LOCAL_AUTH=no ignored")
	}
	if c.LogMode != "prod" {
		t.Fatalf("online mode should log in prod format, got %q", c.LogMode)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qbank.yaml")
	body := "db_driver: memory\nmax_variants: 5\nredis_addr: redis:6379\ncors_origins: [\"https://file.example\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_VARIANTS", "7")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DBDriver != "memory" || c.RedisAddr != "redis:6379" {
		t.Fatalf("file values lost: %+v", c)
	}
	if c.MaxVariants != 7 {
		t.Fatalf("env should win over file, got %d", c.MaxVariants)
	}
	if len(c.CORSOrigins) != 1 || c.CORSOrigins[0] != "https://file.example" {
		t.Fatalf("cors = %v", c.CORSOrigins)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":        {"DB_DRIVER": "mongo"},
		"max variants":  {"MAX_VARIANTS": "-1"},
		"online secret": {"MODE": "online"},
		"missing file":  {"CONFIG_FILE": "/does/not/exist.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
