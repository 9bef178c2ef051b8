package opus

import (
	"fmt"

	libopus "github.com/hraban/opus"

	"github.com/glizzus/voice-bridge/internal/voice"
)

const DefaultBitrate = 64000

// Codec creates libopus encoders and decoders at 48kHz.
type Codec struct {
	Bitrate int
}

var _ voice.Codec = (*Codec)(nil)

// NewEncoder returns a mono encoder tuned for speech.
func (c *Codec) NewEncoder() (voice.Encoder, error) {
	enc, err := libopus.NewEncoder(voice.SampleRate, 1, libopus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	bitrate := c.Bitrate
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}
	return enc, nil
}

// NewDecoder returns a stereo decoder.
func (c *Codec) NewDecoder() (voice.Decoder, error) {
	dec, err := libopus.NewDecoder(voice.SampleRate, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return dec, nil
}
