package voice

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	SampleRate = 48000
	// FrameSamples is one 20ms frame at SampleRate.
	FrameSamples = 960
	// MaxOpusPayload is the largest Opus packet for a single frame.
	MaxOpusPayload = 1275
	// SilenceThreshold is the absolute sample level above which a frame is
	// considered audible.
	SilenceThreshold = 0.0001
	FrameInterval    = 20 * time.Millisecond
)

// SplitFrames slices samples into FrameSamples windows. The last window is
// zero padded.
func SplitFrames(samples []int16) [][FrameSamples]int16 {
	if len(samples) == 0 {
		return nil
	}
	frames := make([][FrameSamples]int16, (len(samples)+FrameSamples-1)/FrameSamples)
	for i := range frames {
		copy(frames[i][:], samples[i*FrameSamples:])
	}
	return frames
}

// FrameEncoder turns 20ms windows into encoded payloads.
type FrameEncoder struct {
	enc Encoder
	pcm [FrameSamples]float32
	out [MaxOpusPayload]byte
}

func NewFrameEncoder(enc Encoder) *FrameEncoder {
	return &FrameEncoder{enc: enc}
}

// Encode returns a newly allocated payload for window.
func (f *FrameEncoder) Encode(window *[FrameSamples]int16) ([]byte, error) {
	for i, s := range window {
		f.pcm[i] = float32(s) / math.MaxInt16
	}
	n, err := f.enc.EncodeFloat32(f.pcm[:], f.out[:])
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	payload := make([]byte, n)
	copy(payload, f.out[:n])
	return payload, nil
}

func pcmToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}

// floatToPCM clamps each sample to [-1, 1] and writes little-endian s16.
func floatToPCM(samples []float32) []byte {
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(s*math.MaxInt16)))
	}
	return pcm
}
