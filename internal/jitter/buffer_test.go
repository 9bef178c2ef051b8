package jitter_test

import (
	"errors"
	"testing"

	"github.com/glizzus/voice-bridge/internal/jitter"
	"github.com/google/go-cmp/cmp"
)

// constDecoder decodes a packet into frameLen stereo samples per channel,
// every sample equal to payload[0].
type constDecoder struct {
	frameLen int
	err      error
}

func (d *constDecoder) DecodeFloat32(data []byte, pcm []float32) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	for i := range d.frameLen * 2 {
		pcm[i] = float32(data[0])
	}
	return d.frameLen, nil
}

func TestBufferReordersBySequence(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 1}, 2, 0)

	for _, seq := range []uint16{3, 1, 2} {
		if err := buf.Push(seq, []byte{byte(seq)}); err != nil {
			t.Fatalf("Push(%d) returned error: %v", seq, err)
		}
	}

	out := make([]float32, 8)
	buf.Fill(out)

	want := []float32{1, 1, 2, 2, 3, 3, 0, 0}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Fill mismatch (-want +got):\n%s", diff)
	}
	if !buf.Empty() {
		t.Errorf("expected buffer to be empty after draining every packet")
	}
}

func TestBufferCarriesPartialFrames(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 3}, 2, 0)
	if err := buf.Push(10, []byte{7}); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}

	out := make([]float32, 4)
	buf.Fill(out)
	if diff := cmp.Diff([]float32{7, 7, 7, 7}, out); diff != "" {
		t.Errorf("first Fill mismatch (-want +got):\n%s", diff)
	}
	if buf.Empty() {
		t.Fatalf("expected leftover samples after a partial fill")
	}

	buf.Fill(out)
	if diff := cmp.Diff([]float32{7, 7, 0, 0}, out); diff != "" {
		t.Errorf("second Fill mismatch (-want +got):\n%s", diff)
	}
	if !buf.Empty() {
		t.Errorf("expected buffer to be empty")
	}
}

func TestBufferRejectsLatePackets(t *testing.T) {
	table := []struct {
		name   string
		played uint16
		seq    uint16
	}{
		{name: "already played", played: 5, seq: 5},
		{name: "before played", played: 5, seq: 2},
		{name: "before played across wraparound", played: 1, seq: 65534},
	}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			buf := jitter.New(&constDecoder{frameLen: 1}, 2, 0)
			if err := buf.Push(tc.played, []byte{1}); err != nil {
				t.Fatalf("Push returned error: %v", err)
			}
			buf.Fill(make([]float32, 2))

			err := buf.Push(tc.seq, []byte{1})
			if !errors.Is(err, jitter.ErrTooLate) {
				t.Errorf("Push(%d) after playing %d = %v; want ErrTooLate", tc.seq, tc.played, err)
			}
		})
	}
}

func TestBufferAcceptsAcrossWraparound(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 1}, 2, 0)
	for _, seq := range []uint16{0, 65535} {
		if err := buf.Push(seq, []byte{byte(seq % 251)}); err != nil {
			t.Fatalf("Push(%d) returned error: %v", seq, err)
		}
	}

	out := make([]float32, 4)
	buf.Fill(out)

	// 65535 precedes 0.
	want := []float32{65535 % 251, 65535 % 251, 0, 0}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Fill mismatch (-want +got):\n%s", diff)
	}
}

func TestBufferRejectsDuplicates(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 1}, 2, 0)
	if err := buf.Push(1, []byte{1}); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if err := buf.Push(1, []byte{1}); !errors.Is(err, jitter.ErrTooLate) {
		t.Errorf("duplicate Push = %v; want ErrTooLate", err)
	}
}

func TestBufferQueueFull(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 1}, 2, 2)
	for seq := range uint16(2) {
		if err := buf.Push(seq, []byte{1}); err != nil {
			t.Fatalf("Push(%d) returned error: %v", seq, err)
		}
	}
	if err := buf.Push(2, []byte{1}); !errors.Is(err, jitter.ErrQueueFull) {
		t.Errorf("Push on a full buffer = %v; want ErrQueueFull", err)
	}

	_, dropped := buf.Stats()
	if dropped != 1 {
		t.Errorf("dropped = %d; want 1", dropped)
	}
}

func TestBufferDecodeError(t *testing.T) {
	decodeErr := errors.New("corrupted stream")
	buf := jitter.New(&constDecoder{err: decodeErr}, 2, 0)

	err := buf.Push(1, []byte{1})
	if !errors.Is(err, decodeErr) {
		t.Fatalf("Push = %v; want wrapped decode error", err)
	}
	if errors.Is(err, jitter.ErrTooLate) || errors.Is(err, jitter.ErrQueueFull) {
		t.Errorf("decode failure must not be classified as a queue error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Len = %d; want 0", buf.Len())
	}
}

func TestFillEmptyBufferIsSilent(t *testing.T) {
	buf := jitter.New(&constDecoder{frameLen: 1}, 2, 0)
	out := []float32{1, 2, 3, 4}
	buf.Fill(out)
	if diff := cmp.Diff([]float32{0, 0, 0, 0}, out); diff != "" {
		t.Errorf("Fill mismatch (-want +got):\n%s", diff)
	}
}
