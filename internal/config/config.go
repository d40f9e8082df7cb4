package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	// First-run admin provisioning. No default password exists; when
	// these are unset and no admin account is present, startup logs a
	// notice and the instance runs admin-less until provisioned.
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

// FromEnv loads .env if present and reads configuration from the
// environment.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		JWTSecret:     envOr("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      envDuration("TOKEN_TTL_HOURS", 8*time.Hour),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: envOr("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	h, err := strconv.Atoi(v)
	if err != nil || h <= 0 {
		return def
	}
	return time.Duration(h) * time.Hour
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
