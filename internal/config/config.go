// Package config loads application settings from the environment, with
// optional .env file support for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application settings.
type Config struct {
	Addr        string // listen address, e.g. ":3000"
	DatabaseURL string // postgres connection string; empty selects the in-memory store
	WebDir      string // directory holding the static pages and scripts

	CookieSecure bool          // mark the session cookie Secure (set behind HTTPS)
	SessionTTL   time.Duration // fixed session lifetime

	// Optional OIDC single sign-on. SSO is disabled while OIDCIssuer is
	// empty.
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// Load reads settings from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:        getEnv("ADDR", ":3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		WebDir:      getEnv("WEB_DIR", "web"),

		CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
		SessionTTL:   time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
