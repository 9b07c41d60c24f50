package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds all server settings. It is built once in main and passed
// down explicitly; nothing reads the environment after Parse returns.
type Config struct {
	Host       string
	Port       int
	Database   string // empty accepts any database name at startup
	User       string
	Password   string // empty enables trust authentication
	LogQueries bool
}

func Parse() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.Host, "host", envStr("PGWIRE_HOST", "localhost"), "listen address")
	flag.IntVar(&cfg.Port, "port", envInt("PGWIRE_PORT", 5432), "listen port")
	flag.StringVar(&cfg.Database, "database", envStr("PGWIRE_DATABASE", "postgres"), "database name to accept (empty = any)")
	flag.StringVar(&cfg.User, "user", envStr("PGWIRE_USERNAME", "postgres"), "auth username")
	flag.StringVar(&cfg.Password, "password", envStr("PGWIRE_PASSWORD", ""), "auth password (empty = trust)")
	flag.BoolVar(&cfg.LogQueries, "log-queries", envBool("PGWIRE_LOG_QUERIES", false), "log received SQL statements")
	flag.Parse()
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
