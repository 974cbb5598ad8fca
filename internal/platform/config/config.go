package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// StoreDriver selects the persistence backend: "memory" or "postgres".
	StoreDriver string
	PostgresDSN string

	// FeedPollInterval controls how often the postgres change log is polled.
	FeedPollInterval time.Duration

	// CDCCapacity bounds the change capture buffer. Zero keeps the default.
	CDCCapacity int

	Redis RedisConfig
}

// RedisConfig holds connection settings for the optional redis change sink.
// An empty URL disables redis entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MERCATO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	driver := os.Getenv("MERCATO_STORE_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	return Server{
		Addr:             addr,
		StoreDriver:      driver,
		PostgresDSN:      os.Getenv("MERCATO_POSTGRES_DSN"),
		FeedPollInterval: durationEnv("MERCATO_FEED_POLL_INTERVAL", 250*time.Millisecond),
		CDCCapacity:      intEnv("MERCATO_CDC_CAPACITY", 0),
		Redis: RedisConfig{
			URL:          os.Getenv("MERCATO_REDIS_URL"),
			PoolSize:     intEnv("MERCATO_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("MERCATO_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("MERCATO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("MERCATO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("MERCATO_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
