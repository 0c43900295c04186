package config

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Port      string `env:"PORT" env-default:"3000"`
	Debug     bool   `env:"DEBUG" env-default:"false"`
	SeedFile  string `env:"SEED_FILE" env-default:"seed/demo.yaml"` // set empty to start with no boards
	BodyLimit string `env:"BODY_LIMIT" env-default:"64K"`
	Redis     RedisConfig
	Events    EventsConfig
}

type RedisConfig struct {
	ConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	CacheTTL         time.Duration `env:"CACHE_TTL" env-default:"5m"`
}

type EventsConfig struct {
	StorageConnectionString string        `env:"STORAGE_CONNECTION_STRING"`
	Queue                   string        `env:"EVENTS_QUEUE"`
	Workers                 int           `env:"OUTBOX_WORKERS" env-default:"4"`
	Buffer                  int           `env:"OUTBOX_BUFFER" env-default:"1024"`
	HandoffTimeout          time.Duration `env:"OUTBOX_HANDOFF_TIMEOUT" env-default:"15ms"`
	DeliverTimeout          time.Duration `env:"OUTBOX_DELIVER_TIMEOUT" env-default:"10s"`
	RetryInitial            time.Duration `env:"OUTBOX_RETRY_INITIAL" env-default:"250ms"`
	RetryMax                time.Duration `env:"OUTBOX_RETRY_MAX" env-default:"30s"`
	MaxAttempts             int           `env:"OUTBOX_MAX_ATTEMPTS" env-default:"5"`
}

// QueueEnabled reports whether events should also go to the storage queue.
func (c EventsConfig) QueueEnabled() bool {
	return c.StorageConnectionString != "" && c.Queue != ""
}

// Read loads the configuration from the environment.
func Read() (*Config, error) {
	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form used by hosted caches.
func RedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
