package opus

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/glizzus/voice-bridge/internal/voice"
)

// Transcode takes any audio as an io.Reader, runs FFmpeg to transcode it to
// mono 48kHz Opus in 20ms frames, and returns the Ogg stream. The returned
// io.ReadCloser must be closed to clean up the FFmpeg process.
func Transcode(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	ffmpeg := exec.CommandContext(ctx, "ffmpeg",
		"-i", "pipe:0",
		"-vn",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-vbr", "on",
		"-compression_level", "10",
		"-ar", strconv.Itoa(voice.SampleRate),
		"-ac", "1",
		"-b:a", strconv.Itoa(DefaultBitrate),
		"-application", "voip",
		"-frame_duration", "20",
		"-threads", "0",
		"pipe:1",
	)
	ffmpeg.Stdin = r

	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe output of ffmpeg: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, fmt.Errorf("unable to start ffmpeg process: %w", err)
	}

	return &transcodeCloser{ReadCloser: stdout, cmd: ffmpeg}, nil
}

// transcodeCloser ensures the FFmpeg process is cleaned up.
type transcodeCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (t *transcodeCloser) Close() error {
	err := t.ReadCloser.Close()
	// Kill FFmpeg if still running (e.g. pipe closed early).
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.cmd.Wait()
	return err
}
