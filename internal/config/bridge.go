package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	"github.com/glizzus/voice-bridge/internal/voice"
)

// BridgeConfig describes the voice session the harness joins.
type BridgeConfig struct {
	// Address is the guild to join.
	Address         string `env:"BRIDGE_ADDRESS, required"`
	Channel         string `env:"BRIDGE_CHANNEL"`
	Password        string `env:"BRIDGE_PASSWORD"`
	Nickname        string `env:"BRIDGE_NICKNAME, default=voice-bridge"`
	ChannelPassword string `env:"BRIDGE_CHANNEL_PASSWORD"`
	Identity        string `env:"BRIDGE_IDENTITY"`
	LogLevel        string `env:"BRIDGE_LOG_LEVEL"`
}

func NewBridgeConfigFromEnv() (*BridgeConfig, error) {
	return newBridgeConfig(envconfig.OsLookuper())
}

func newBridgeConfig(lookuper envconfig.Lookuper) (*BridgeConfig, error) {
	var cfg BridgeConfig
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *BridgeConfig) ConnectOptions() voice.ConnectOptions {
	return voice.ConnectOptions{
		Address:         c.Address,
		Password:        c.Password,
		Nickname:        c.Nickname,
		Channel:         c.Channel,
		ChannelPassword: c.ChannelPassword,
		Identity:        c.Identity,
		LogLevel:        c.LogLevel,
	}
}
