package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/longtk/giapha/internal/auth"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Token secrets are split per class so that
// a leaked token of one kind cannot be verified as another.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string // secret used to sign access tokens
	RefreshSecret string // secret used to sign refresh tokens
	MailSecret    string // secret shared by forgot-password and email-verify tokens
	PwdSecret     string // global secret keyed into the password digest

	AccessTTLMin   int // access token time-to-live in minutes
	RefreshTTLDays int // refresh token time-to-live in days
	MailTTLMin     int // mail token time-to-live in minutes
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		AccessSecret:   must("JWT_ACCESS_SECRET"),
		RefreshSecret:  must("JWT_REFRESH_SECRET"),
		MailSecret:     must("JWT_MAIL_SECRET"),
		PwdSecret:      must("PASSWORD_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		MailTTLMin:     mustInt("MAIL_TOKEN_TTL_MIN"),
	}
}

// TokenSecrets groups the signing secrets for the token codec.
func (c Config) TokenSecrets() auth.Secrets {
	return auth.Secrets{
		Access:  c.AccessSecret,
		Refresh: c.RefreshSecret,
		Mail:    c.MailSecret,
	}
}

// TokenTTLs groups the per-class token lifetimes for the token codec.
func (c Config) TokenTTLs() auth.TTLs {
	return auth.TTLs{
		Access:  time.Duration(c.AccessTTLMin) * time.Minute,
		Refresh: time.Duration(c.RefreshTTLDays) * 24 * time.Hour,
		Mail:    time.Duration(c.MailTTLMin) * time.Minute,
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
