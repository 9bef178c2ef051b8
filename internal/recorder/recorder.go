// Package recorder captures the mixed audio of a session into a WAV file.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/voice-bridge/internal/datalayer"
	"github.com/glizzus/voice-bridge/internal/voice"
)

// Recorder keeps audioMixed frames until it holds the requested duration.
type Recorder struct {
	limit int

	mu     sync.Mutex
	pcm    []byte
	frames int
	done   chan struct{}
}

// New records d of audio, rounded up to whole 20ms frames.
func New(d time.Duration) *Recorder {
	limit := int((d + voice.FrameInterval - 1) / voice.FrameInterval)
	return &Recorder{
		limit: max(limit, 1),
		pcm:   make([]byte, 0, limit*2*voice.FrameSamples),
		done:  make(chan struct{}),
	}
}

// OnEvent has the signature of a voice client callback.
func (r *Recorder) OnEvent(ev voice.NativeEvent) {
	if ev.Name != voice.EventNameAudioMixed {
		return
	}
	var payload voice.AudioPayload
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		slog.Debug("failed to parse audio payload", "error", err)
		return
	}
	pcm, err := voice.DecodeBase64PCM(payload.PCM)
	if err != nil {
		slog.Debug("failed to decode audio payload", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames >= r.limit {
		return
	}
	r.pcm = append(r.pcm, pcm...)
	r.frames++
	if r.frames == r.limit {
		close(r.done)
	}
}

// Done is closed once the requested duration has been recorded.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Frames is the number of frames recorded so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// WAV returns what was recorded so far as a mono 48kHz WAV file.
func (r *Recorder) WAV() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return WAVFromPCM16Mono(r.pcm, voice.SampleRate)
}

// Upload stores the current recording under key.
func (r *Recorder) Upload(ctx context.Context, storage datalayer.BlobStorage, key string) error {
	wav := r.WAV()
	err := storage.Put(ctx, key, bytes.NewReader(wav), datalayer.PutOptions{
		Size:        int64(len(wav)),
		ContentType: "audio/wav",
	})
	if err != nil {
		return fmt.Errorf("failed to upload recording: %w", err)
	}
	return nil
}
