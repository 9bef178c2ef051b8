package opus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/glizzus/voice-bridge/internal/voice"
)

// FramePusher accepts PCM frames without blocking.
type FramePusher interface {
	PushFrame(pcm []byte) error
}

// FrameSource yields PCM frames until io.EOF.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Play pushes one frame from source every 20ms until the source is drained
// or ctx is done. Frames refused for backpressure are skipped. It returns the
// number of frames pushed, and nil on clean EOF.
func Play(ctx context.Context, source FrameSource, pusher FramePusher) (int, error) {
	ticker := time.NewTicker(voice.FrameInterval)
	defer ticker.Stop()

	pushed := 0
	for {
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pushed, nil
			}
			return pushed, err
		}

		switch err := pusher.PushFrame(frame); {
		case err == nil:
			pushed++
		case errors.Is(err, voice.ErrBackpressure):
			slog.Debug("skipped frame on backpressure")
		default:
			return pushed, err
		}

		select {
		case <-ctx.Done():
			return pushed, ctx.Err()
		case <-ticker.C:
		}
	}
}
