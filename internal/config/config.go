package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	SessionCookie  string
	CartCookie     string
	SessionTTL     time.Duration
	CookieSecure   bool
	LoginRedirect  string
	ErrorRedirect  string
	RequestTimeout time.Duration
	LogLevel       string
	AllowOrigins   string
	AllowReset     bool
}

// Load reads configuration from a local .env file (if any) and the environment.
func Load() Config {
	// a missing .env is fine outside of local development
	_ = godotenv.Load()

	return Config{
		Addr:           getEnv("STOREFRONT_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionCookie:  getEnv("SESSION_COOKIE", "session"),
		CartCookie:     getEnv("CART_COOKIE", "cart"),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 72*time.Hour),
		CookieSecure:   getEnvAsBool("COOKIE_SECURE", false),
		LoginRedirect:  getEnv("LOGIN_REDIRECT", "/"),
		ErrorRedirect:  getEnv("ERROR_REDIRECT", "/error/"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowOrigins:   getEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowReset:     getEnv("ALLOW_RESET_PRODUCTS", "") == "1",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
