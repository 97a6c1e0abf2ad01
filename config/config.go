package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Redis   RedisConfig
	Session SessionConfig
	Sync    SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
}

// BackendConfig points at the event management REST API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds Redis connection settings. KeyPrefix namespaces the fallback cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	Secret      string
	ExpireHours int
	CookieName  string
	Secure      bool // set the Secure flag on cookies (HTTPS deployments)
}

// SyncConfig controls live refresh and the in-memory session store.
type SyncConfig struct {
	PollInterval time.Duration
	SessionTTL   time.Duration
	MaxSessions  int
	CacheTTL     time.Duration // 0 keeps cache documents until deleted
}

// Origins returns the configured CORS origins.
func (c ServerConfig) Origins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8090"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080/api"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "portal"),
		},
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("SESSION_EXPIRE_HOURS", 24),
			CookieName:  getEnv("SESSION_COOKIE_NAME", "portal_session"),
			Secure:      getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Sync: SyncConfig{
			PollInterval: getEnvDuration("SYNC_POLL_INTERVAL", 5*time.Second),
			SessionTTL:   getEnvDuration("SYNC_SESSION_TTL", 24*time.Hour),
			MaxSessions:  getEnvInt("SYNC_MAX_SESSIONS", 10000),
			CacheTTL:     getEnvDuration("SYNC_CACHE_TTL", 0),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s", "1h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
