package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/glizzus/voice-bridge/internal/config"
	"github.com/glizzus/voice-bridge/internal/datalayer"
	"github.com/glizzus/voice-bridge/internal/generator"
	"github.com/glizzus/voice-bridge/internal/recorder"
	"github.com/glizzus/voice-bridge/internal/schedule"
	"github.com/glizzus/voice-bridge/internal/voice"
)

// recordSlack bounds how long a recording waits for audio past its duration.
const recordSlack = 10 * time.Second

var recordCommand = &cli.Command{
	Name:  "record",
	Usage: "Join the configured channel and record the mixed audio to a WAV file",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "seconds",
			Usage: "Length of each recording",
			Value: 5,
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output WAV path",
			Value: "recorded_5s.wav",
		},
		&cli.BoolFlag{
			Name:  "upload",
			Usage: "Upload each recording to MinIO",
		},
		&cli.StringFlag{
			Name:  "cron",
			Usage: "Record on this cron schedule instead of immediately",
		},
		&cli.IntFlag{
			Name:  "runs",
			Usage: "Number of scheduled recordings when --cron is set",
			Value: 1,
		},
	},
	Action: func(c *cli.Context) error {
		seconds := c.Int("seconds")
		if seconds <= 0 {
			return cli.Exit("--seconds must be positive", 1)
		}
		cron := c.String("cron")
		if cron != "" {
			if err := schedule.ValidateCron(cron); err != nil {
				return cli.Exit(err.Error(), 1)
			}
		}

		h, err := newHarness(c.Context)
		if err != nil {
			return err
		}
		defer h.close()

		job := recordJob{
			harness:  h,
			duration: time.Duration(seconds) * time.Second,
			out:      c.String("out"),
		}
		if c.Bool("upload") {
			if job.storage, err = newStorage(c.Context); err != nil {
				return err
			}
			job.keys = &generator.RecordingKeyGenerator{
				Guild: h.bridge.Address,
				IDs:   &generator.UUIDV4Generator{},
			}
		}

		if cron == "" {
			return job.run(c.Context, job.out)
		}

		runTimes, err := schedule.NextRunTimes(cron, c.Int("runs"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		for _, runAt := range runTimes {
			slog.Info("next recording scheduled", "runAt", runAt.Format(time.RFC3339))
			out := timestamped(job.out, runAt)
			done := schedule.RunAt(c.Context, runAt, func(ctx context.Context) {
				if err := job.run(ctx, out); err != nil {
					slog.Error("scheduled recording failed", "runAt", runAt, "error", err)
				}
			})
			<-done
			if err := c.Context.Err(); err != nil {
				return err
			}
		}
		return nil
	},
}

func newStorage(ctx context.Context) (*datalayer.MinioStorage, error) {
	minioConfig, err := config.NewMinioConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load minio config: %w", err)
	}
	storage, err := datalayer.NewMinioStorage(minioConfig)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return storage, nil
}

type recordJob struct {
	harness  *harness
	duration time.Duration
	out      string
	storage  datalayer.BlobStorage
	keys     generator.Generator[string]
}

func (j *recordJob) run(ctx context.Context, out string) error {
	dispatcher, sessionID, err := j.harness.dispatcher()
	if err != nil {
		return err
	}
	rec := recorder.New(j.duration)
	j.harness.client.OnEvent(func(ev voice.NativeEvent) {
		dispatcher.OnEvent(ev)
		rec.OnEvent(ev)
	})
	defer j.harness.client.OnEvent(nil)

	if err := j.harness.connect(ctx); err != nil {
		return err
	}
	slog.Info("recording", "sessionID", sessionID, "duration", j.duration, "out", out)

	select {
	case <-rec.Done():
	case <-time.After(j.duration + recordSlack):
		slog.Warn("recording ended before the requested duration", "frames", rec.Frames())
	case <-ctx.Done():
		slog.Info("recording interrupted", "frames", rec.Frames())
	}
	j.harness.disconnect(context.Background(), "recording finished")

	if err := os.WriteFile(out, rec.WAV(), 0o644); err != nil {
		return fmt.Errorf("failed to write wav to %s: %w", out, err)
	}
	slog.Info("wrote recording", "path", out, "frames", rec.Frames())

	if j.storage != nil {
		key, err := j.keys.Next()
		if err != nil {
			return err
		}
		if err := rec.Upload(ctx, j.storage, key); err != nil {
			return err
		}
		slog.Info("uploaded recording", "key", key)
	}
	return nil
}

// timestamped inserts the run time before the extension of path.
func timestamped(path string, t time.Time) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(path, ext), t.UTC().Format("20060102T150405"), ext)
}
