package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/glizzus/voice-bridge/internal/config"
	"github.com/glizzus/voice-bridge/internal/voice"
)

func main() {
	app := &cli.App{
		Name:        "voice-bridge",
		Description: "Joins a Discord voice channel to record or play audio through the voice bridge",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log at debug level",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			identityCommand,
			recordCommand,
			playCommand,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("voice-bridge encountered an error", "error", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	if c.Bool("debug") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if addr := c.String("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "addr", addr, "error", err)
			}
		}()
		slog.Info("serving metrics", "addr", addr)
	}
	return nil
}

var identityCommand = &cli.Command{
	Name:  "identity",
	Usage: "Print a freshly generated identity for BRIDGE_IDENTITY",
	Action: func(c *cli.Context) error {
		id, err := voice.NewIdentity()
		if err != nil {
			return fmt.Errorf("failed to generate identity: %w", err)
		}
		fmt.Fprintln(c.App.Writer, id.String())
		return nil
	},
}
