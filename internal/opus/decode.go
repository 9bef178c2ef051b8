package opus

import (
	"errors"
	"fmt"
	"io"

	libopus "github.com/hraban/opus"
	"github.com/jonas747/ogg"

	"github.com/glizzus/voice-bridge/internal/voice"
)

// headerPackets is the number of Ogg/Opus metadata packets (OpusHead and
// OpusTags) that precede the audio.
const headerPackets = 2

// PacketReader reads raw Opus packets from an Ogg stream.
type PacketReader struct {
	decoder *ogg.PacketDecoder
	skip    int
}

func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{
		decoder: ogg.NewPacketDecoder(ogg.NewDecoder(r)),
		skip:    headerPackets,
	}
}

// ReadPacket returns the next audio packet, or io.EOF at the end of the
// stream.
func (p *PacketReader) ReadPacket() ([]byte, error) {
	for {
		packet, _, err := p.decoder.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read ogg packet: %w", err)
		}
		if p.skip > 0 {
			p.skip--
			continue
		}
		return packet, nil
	}
}

// PacketSource yields Opus packets until io.EOF.
type PacketSource interface {
	ReadPacket() ([]byte, error)
}

// Int16Decoder decodes one Opus packet into s16 samples and returns the
// number of samples per channel.
type Int16Decoder interface {
	Decode(data []byte, pcm []int16) (int, error)
}

// maxPacketSamples is the longest Opus packet (120ms) at 48kHz.
const maxPacketSamples = 5760

// PCMReader decodes packets into 20ms little-endian s16 mono frames.
type PCMReader struct {
	src     PacketSource
	dec     Int16Decoder
	scratch []int16
	pending []int16
	eof     bool
}

// NewPCMReader decodes src with a mono libopus decoder.
func NewPCMReader(src PacketSource) (*PCMReader, error) {
	dec, err := libopus.NewDecoder(voice.SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return NewPCMReaderWithDecoder(src, dec), nil
}

func NewPCMReaderWithDecoder(src PacketSource, dec Int16Decoder) *PCMReader {
	return &PCMReader{
		src:     src,
		dec:     dec,
		scratch: make([]int16, maxPacketSamples),
	}
}

// ReadFrame returns the next frame as PCM bytes. The final frame may be
// short. It returns io.EOF once every sample was returned.
func (r *PCMReader) ReadFrame() ([]byte, error) {
	for !r.eof && len(r.pending) < voice.FrameSamples {
		packet, err := r.src.ReadPacket()
		if errors.Is(err, io.EOF) {
			r.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
		n, err := r.dec.Decode(packet, r.scratch)
		if err != nil {
			return nil, fmt.Errorf("failed to decode opus packet: %w", err)
		}
		r.pending = append(r.pending, r.scratch[:n]...)
	}

	if len(r.pending) == 0 {
		return nil, io.EOF
	}
	n := min(len(r.pending), voice.FrameSamples)
	frame := make([]byte, 2*n)
	for i, s := range r.pending[:n] {
		frame[2*i] = byte(s)
		frame[2*i+1] = byte(uint16(s) >> 8)
	}
	r.pending = r.pending[n:]
	return frame, nil
}
