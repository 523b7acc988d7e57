package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr string

	// DatabaseURL selects the Postgres store when set; the in-memory store
	// backs the process otherwise (useful for local development and tests).
	DatabaseURL string

	// RedisURL enables the Redis-backed attribute lock for multi-instance
	// deployments. Empty means the in-process keyed lock is used.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink when non-empty
	// (comma-separated broker list).
	KafkaBrokers string

	// LockTTL bounds how long a crashed instance can hold an attribute lock.
	LockTTL time.Duration

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("UNIFY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	lockTTL := 10 * time.Second
	if v := os.Getenv("UNIFY_LOCK_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			lockTTL = d
		}
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("UNIFY_DATABASE_URL"),
		RedisURL:        os.Getenv("UNIFY_REDIS_URL"),
		KafkaBrokers:    os.Getenv("UNIFY_KAFKA_BROKERS"),
		LockTTL:         lockTTL,
		ShutdownTimeout: 10 * time.Second,
	}
}
