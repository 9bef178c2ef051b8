package voice

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/glizzus/voice-bridge/internal/jitter"
	"github.com/pion/rtp"
)

// ClientID identifies a remote participant. It is the SSRC of its packets.
type ClientID uint32

// PayloadTypeOpus is the RTP payload type of Opus voice packets.
const PayloadTypeOpus uint8 = 120

const stereo = 2

// SpeakerFrame is one audible participant's mono frame for a tick.
type SpeakerFrame struct {
	ClientID ClientID
	Samples  []float32
}

// Mix is the output of one tick. Speakers is ordered by ClientID.
type Mix struct {
	Mixed    []float32
	Speakers []SpeakerFrame
}

// Mixer keeps one jitter buffer per remote participant. It is owned by a
// single goroutine.
type Mixer struct {
	codec    Codec
	capacity int
	speakers map[ClientID]*jitter.Buffer
	stereo   []float32
}

func NewMixer(codec Codec, jitterCapacity int) *Mixer {
	return &Mixer{
		codec:    codec,
		capacity: jitterCapacity,
		speakers: make(map[ClientID]*jitter.Buffer),
		stereo:   make([]float32, FrameSamples*stereo),
	}
}

// HandlePacket routes one RTP-encoded packet to its speaker's buffer.
// Packets of other payload types are ignored.
func (m *Mixer) HandlePacket(raw []byte) error {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		packetsIn.WithLabelValues("malformed").Inc()
		return fmt.Errorf("malformed audio packet: %w", err)
	}
	if pkt.PayloadType != PayloadTypeOpus {
		packetsIn.WithLabelValues("ignored").Inc()
		return nil
	}

	id := ClientID(pkt.SSRC)
	buf, ok := m.speakers[id]
	if !ok {
		dec, err := m.codec.NewDecoder()
		if err != nil {
			return fmt.Errorf("failed to create decoder for client %d: %w", id, err)
		}
		buf = jitter.New(dec, stereo, m.capacity)
		m.speakers[id] = buf
		activeSpeakers.Inc()
	}

	if err := buf.Push(pkt.SequenceNumber, pkt.Payload); err != nil {
		if isTransient(err) {
			packetsIn.WithLabelValues("dropped").Inc()
		} else {
			packetsIn.WithLabelValues("decode_error").Inc()
		}
		return err
	}
	packetsIn.WithLabelValues("ok").Inc()
	return nil
}

// Tick drains one frame from every speaker. Speakers whose buffer is empty
// after the drain are forgotten once all of them were mixed.
func (m *Mixer) Tick() Mix {
	mix := Mix{Mixed: make([]float32, FrameSamples)}
	var drained []ClientID

	for _, id := range slices.Sorted(maps.Keys(m.speakers)) {
		buf := m.speakers[id]
		buf.Fill(m.stereo)
		if buf.Empty() {
			drained = append(drained, id)
		}

		mono := make([]float32, FrameSamples)
		for i := range mono {
			mono[i] = (m.stereo[2*i] + m.stereo[2*i+1]) / 2
			mix.Mixed[i] += mono[i]
		}
		if audible(mono) {
			mix.Speakers = append(mix.Speakers, SpeakerFrame{ClientID: id, Samples: mono})
		}
	}

	for _, id := range drained {
		delete(m.speakers, id)
		activeSpeakers.Dec()
	}
	ticks.Inc()
	return mix
}

// Len returns the number of tracked speakers.
func (m *Mixer) Len() int {
	return len(m.speakers)
}

// Reset forgets every speaker.
func (m *Mixer) Reset() {
	activeSpeakers.Sub(float64(len(m.speakers)))
	clear(m.speakers)
}

func audible(samples []float32) bool {
	for _, s := range samples {
		if s > SilenceThreshold || s < -SilenceThreshold {
			return true
		}
	}
	return false
}

// isTransient reports jitter conditions that are expected under normal
// network behavior and are not surfaced to the host.
func isTransient(err error) bool {
	return errors.Is(err, jitter.ErrTooLate) || errors.Is(err, jitter.ErrQueueFull)
}
