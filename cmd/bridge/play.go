package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/glizzus/voice-bridge/internal/opus"
)

var playCommand = &cli.Command{
	Name:  "play",
	Usage: "Join the configured channel and play an audio file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Usage:    "Audio file to play. Ogg/Opus is read directly, anything else goes through ffmpeg",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "seconds",
			Usage: "Stop playing after this many seconds; 0 plays the whole file",
			Value: 5,
		},
	},
	Action: func(c *cli.Context) error {
		f, err := os.Open(c.String("file"))
		if err != nil {
			return cli.Exit("failed to open file: "+err.Error(), 1)
		}
		defer f.Close()

		h, err := newHarness(c.Context)
		if err != nil {
			return err
		}
		defer h.close()

		dispatcher, sessionID, err := h.dispatcher()
		if err != nil {
			return err
		}
		h.client.OnEvent(dispatcher.OnEvent)

		ctx := c.Context
		if seconds := c.Int("seconds"); seconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
			defer cancel()
		}

		stream, err := openOpus(ctx, f)
		if err != nil {
			return err
		}
		defer stream.Close()

		frames, err := opus.NewPCMReader(opus.NewPacketReader(stream))
		if err != nil {
			return err
		}

		if err := h.connect(c.Context); err != nil {
			return err
		}
		slog.Info("playing", "sessionID", sessionID, "file", c.String("file"))

		pushed, err := opus.Play(ctx, frames, h.client)
		h.disconnect(context.Background(), "playback finished")
		slog.Info("playback stopped", "frames", pushed)

		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed to play %s: %w", c.String("file"), err)
		}
		return nil
	},
}

// openOpus returns an Ogg/Opus stream of f, transcoding when needed.
func openOpus(ctx context.Context, f *os.File) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(f.Name())) {
	case ".ogg", ".opus":
		return io.NopCloser(f), nil
	default:
		return opus.Transcode(ctx, f)
	}
}
