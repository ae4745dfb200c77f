// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything the binaries read from the environment.
type Config struct {
	Port     string
	LogLevel string

	RedisAddr          string
	RedisDB            int
	HistorianQueueName string

	PostgresUser     string
	PostgresPassword string
	PGHost           string
	PGPort           string
	PGDatabase       string

	TokenExpireTime string
	JWTPrivateKey   string
	JWTPublicKey    string

	HistorianBatchSize  int
	HistorianFlush      time.Duration
	HistorianInactivity time.Duration

	SessionLogLimit int
	AllowedOrigins  []string
}

// Load reads the environment, falling back to development defaults.
func Load() Config {
	return Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		HistorianQueueName: getEnv("HISTORIAN_QUEUE_NAME", "liarspoker_actions"),

		PostgresUser:     getEnv("POSTGRES_USER", ""),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PGHost:           getEnv("PG_HOST", ""),
		PGPort:           getEnv("PG_PORT", "5432"),
		PGDatabase:       getEnv("PG_DATABASE", "liarspoker"),

		TokenExpireTime: getEnv("TOKEN_EXPIRE_TIME", "72h"),
		JWTPrivateKey:   getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKey:    getEnv("JWT_PUBLIC_KEY_PATH", ""),

		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:      time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		HistorianInactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,

		SessionLogLimit: getEnvInt("SESSION_LOG_LIMIT", 200),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// PostgresDSN returns the connection string, or "" when no database host is configured.
func (c Config) PostgresDSN() string {
	if c.PGHost == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// getEnv reads an environment variable or returns def.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else def.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
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
