package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// RedisConfig points at the Redis instance receiving lifecycle events. An
// empty Addr disables the Redis sink.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
	Stream   string `env:"REDIS_STREAM, default=voice_bridge_events"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
