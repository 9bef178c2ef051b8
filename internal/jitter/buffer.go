// Package jitter reorders and decodes the audio packets of a single remote
// speaker so that a fixed-cadence consumer can pull one frame at a time.
package jitter

import (
	"container/heap"
	"errors"
	"fmt"
)

var (
	// ErrTooLate is returned for packets whose slot has already been played
	// out or that duplicate a buffered packet.
	ErrTooLate = errors.New("packet arrived too late")
	// ErrQueueFull is returned when the buffer already holds its capacity.
	ErrQueueFull = errors.New("jitter queue is full")
)

// DefaultCapacity holds one second of 20ms packets.
const DefaultCapacity = 50

// maxFrameSamples is the longest Opus frame (120ms) at 48kHz, per channel.
const maxFrameSamples = 5760

// Decoder decodes one packet into interleaved float samples and returns the
// number of samples per channel.
type Decoder interface {
	DecodeFloat32(data []byte, pcm []float32) (int, error)
}

type frame struct {
	seq     uint16
	samples []float32
}

// frameHeap orders frames by sequence number, accounting for wraparound.
type frameHeap []frame

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return seqBefore(h[i].seq, h[j].seq) }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x any) { *h = append(*h, x.(frame)) }

func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func seqBefore(a, b uint16) bool {
	return int16(a-b) < 0
}

// Buffer is not safe for concurrent use.
type Buffer struct {
	dec      Decoder
	channels int
	capacity int

	frames  frameHeap
	pending []float32
	scratch []float32

	started bool
	next    uint16

	late    uint64
	dropped uint64
}

// New returns a Buffer decoding with dec into interleaved frames of the
// given channel count. A non-positive capacity selects DefaultCapacity.
func New(dec Decoder, channels, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		dec:      dec,
		channels: channels,
		capacity: capacity,
		scratch:  make([]float32, maxFrameSamples*channels),
	}
}

// Push decodes payload and queues it at position seq.
func (b *Buffer) Push(seq uint16, payload []byte) error {
	if b.started && seqBefore(seq, b.next) {
		b.late++
		return fmt.Errorf("sequence %d, expected %d or later: %w", seq, b.next, ErrTooLate)
	}
	for _, f := range b.frames {
		if f.seq == seq {
			b.late++
			return fmt.Errorf("duplicate sequence %d: %w", seq, ErrTooLate)
		}
	}
	if len(b.frames) >= b.capacity {
		b.dropped++
		return ErrQueueFull
	}

	n, err := b.dec.DecodeFloat32(payload, b.scratch)
	if err != nil {
		return fmt.Errorf("failed to decode packet %d: %w", seq, err)
	}
	samples := make([]float32, n*b.channels)
	copy(samples, b.scratch)

	heap.Push(&b.frames, frame{seq: seq, samples: samples})
	return nil
}

// Fill writes decoded samples into out in sequence order and pads the rest
// with silence. Missing sequence numbers are skipped.
func (b *Buffer) Fill(out []float32) {
	n := 0
	for n < len(out) {
		if len(b.pending) == 0 {
			if len(b.frames) == 0 {
				break
			}
			f := heap.Pop(&b.frames).(frame)
			b.started = true
			b.next = f.seq + 1
			b.pending = f.samples
		}
		c := copy(out[n:], b.pending)
		n += c
		b.pending = b.pending[c:]
	}
	clear(out[n:])
}

// Empty reports whether no decoded audio is left.
func (b *Buffer) Empty() bool {
	return len(b.frames) == 0 && len(b.pending) == 0
}

// Len returns the number of queued packets.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Stats returns the number of late and dropped packets seen so far.
func (b *Buffer) Stats() (late, dropped uint64) {
	return b.late, b.dropped
}
