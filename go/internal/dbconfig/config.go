package dbconfig

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds the Postgres settings shared by every pomoroom binary that
// talks to the statuses database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// ApplicationName shows up in pg_stat_activity, one per binary.
	ApplicationName string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewConfigFromEnv reads DB_* environment variables (with defaults) for the
// named application.
func NewConfigFromEnv(application string) Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "0"), 10, 32)
	if err != nil {
		maxConns = 0
	}
	lifetime, err := time.ParseDuration(getEnv("DB_MAX_CONN_LIFETIME", "0s"))
	if err != nil {
		lifetime = 0
	}

	return Config{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            port,
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		Database:        getEnv("DB_NAME", "pomoroom"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		ApplicationName: application,
		MaxConns:        int32(maxConns),
		MaxConnLifetime: lifetime,
	}
}

// DSN returns the Postgres connection URL. Credentials are escaped, and the
// application name travels as a query parameter so both pgx and lib/pq
// report it.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate reports settings that can never connect.
func (c Config) Validate() error {
	if c.Host == "" || c.Database == "" || c.User == "" {
		return fmt.Errorf("database host, name and user are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Port)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("invalid max connections %d", c.MaxConns)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
