package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/voice-bridge/internal/config"
	"github.com/glizzus/voice-bridge/internal/datalayer"
	"github.com/glizzus/voice-bridge/internal/discord"
	"github.com/glizzus/voice-bridge/internal/eventsink"
	"github.com/glizzus/voice-bridge/internal/generator"
	"github.com/glizzus/voice-bridge/internal/opus"
	"github.com/glizzus/voice-bridge/internal/repository"
	"github.com/glizzus/voice-bridge/internal/voice"
)

const redisStreamMaxLen = 10000

// harness owns everything a command needs to run sessions.
type harness struct {
	bridge   *config.BridgeConfig
	client   *voice.Client
	handlers []eventsink.Handler
	closers  []func()
}

func newHarness(ctx context.Context) (*harness, error) {
	bridgeConfig, err := config.NewBridgeConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load bridge config: %w", err)
	}
	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load discord config: %w", err)
	}

	h := &harness{bridge: bridgeConfig}
	if err := h.openSinks(ctx); err != nil {
		h.close()
		return nil, err
	}

	session, err := discord.NewSession(discordConfig.Token, voice.ParseVerbosity(bridgeConfig.LogLevel))
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		h.close()
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	h.closers = append(h.closers, func() {
		if err := session.Close(); err != nil {
			slog.Error("failed to close discord session", "error", err)
		}
	})

	h.client = voice.NewClient(voice.Config{
		Dialer: discord.NewDialer(session),
		Codec:  &opus.Codec{},
	})
	return h, nil
}

// openSinks wires the lifecycle event handlers that are configured.
func (h *harness) openSinks(ctx context.Context) error {
	h.handlers = append(h.handlers, &eventsink.PrintingHandler{})

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	if redisConfig.Enabled() {
		rdb, err := datalayer.NewRedisClient(ctx, redisConfig)
		if err != nil {
			return err
		}
		h.closers = append(h.closers, func() { _ = rdb.Close() })
		h.handlers = append(h.handlers, eventsink.NewRedisStreamHandler(rdb, redisConfig.Stream, redisStreamMaxLen))
	}

	postgresConfig, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load postgres config: %w", err)
	}
	if postgresConfig.Enabled() {
		pool, err := datalayer.NewPostgresPool(ctx, postgresConfig)
		if err != nil {
			return err
		}
		h.closers = append(h.closers, pool.Close)
		if err := datalayer.MigratePostgres(pool); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
		h.handlers = append(h.handlers, repository.NewPostgresEventRepository(pool))
	}
	return nil
}

// dispatcher starts the event journal of a new session.
func (h *harness) dispatcher() (*eventsink.Dispatcher, string, error) {
	sessionID, err := (&generator.UUIDV4Generator{}).Next()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return eventsink.NewDispatcher(sessionID, h.handlers...), sessionID, nil
}

// connect joins the configured voice channel and remembers the identity the
// session used, so later sessions of this process reuse it.
func (h *harness) connect(ctx context.Context) error {
	if err := h.client.Connect(ctx, h.bridge.ConnectOptions()); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if id, ok := h.client.ExportIdentity(); ok && h.bridge.Identity == "" {
		h.bridge.Identity = id
		slog.Debug("generated session identity", "identity", id)
	}
	return nil
}

func (h *harness) disconnect(ctx context.Context, message string) {
	if err := h.client.Disconnect(ctx, voice.DisconnectParams{Message: message}); err != nil {
		slog.Warn("failed to disconnect gracefully", "error", err)
	}
}

func (h *harness) close() {
	if h.client != nil {
		if err := h.client.Close(context.Background()); err != nil {
			slog.Debug("client closed", "error", err)
		}
	}
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}
