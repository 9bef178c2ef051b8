package voice_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/voice-bridge/internal/voice"
	"github.com/pion/rtp"
)

type fakeSession struct {
	events chan voice.Event

	mu            sync.Mutex
	sent          []voice.OutAudio
	sendErr       error
	disconnectErr error
	disconnects   []string
	// closeOnDisconnect ends the event stream when Disconnect is called.
	closeOnDisconnect bool
	onDisconnect      func()
	// unblock, when set, holds SendAudio until it is closed.
	unblock   chan struct{}
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		events:            make(chan voice.Event, 64),
		closeOnDisconnect: true,
	}
}

var _ voice.Session = (*fakeSession)(nil)

func (s *fakeSession) Events() <-chan voice.Event { return s.events }

func (s *fakeSession) SendAudio(audio voice.OutAudio) error {
	if s.unblock != nil {
		<-s.unblock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, audio)
	return nil
}

func (s *fakeSession) Disconnect(message string) error {
	s.mu.Lock()
	s.disconnects = append(s.disconnects, message)
	err, closeStream, hook := s.disconnectErr, s.closeOnDisconnect, s.onDisconnect
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	if closeStream {
		s.close()
	}
	return nil
}

func (s *fakeSession) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

func (s *fakeSession) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// fakeDialer returns its session and, when sync is set, immediately reports
// the roster as synced.
type fakeDialer struct {
	session *fakeSession
	err     error
	sync    bool
	block   bool

	mu       sync.Mutex
	dialed   []voice.ConnectOptions
	identity voice.Identity
}

var _ voice.Dialer = (*fakeDialer)(nil)

func (d *fakeDialer) Dial(ctx context.Context, opts voice.ConnectOptions, id voice.Identity) (voice.Session, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, opts)
	d.identity = id
	d.mu.Unlock()

	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.sync {
		d.session.events <- voice.Event{Kind: voice.EventSync, ServerName: "Test Server"}
	}
	return d.session, nil
}

type fakeEncoder struct {
	err error
}

func (e *fakeEncoder) EncodeFloat32(pcm []float32, data []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	data[0] = 0xfc
	return 1, nil
}

// fakeDecoder decodes a packet into one 20ms stereo frame where every sample
// is the float encoded in the payload's first byte divided by 100.
type fakeDecoder struct {
	err error
}

func (d *fakeDecoder) DecodeFloat32(data []byte, pcm []float32) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	v := float32(int8(data[0])) / 100
	for i := range voice.FrameSamples * 2 {
		pcm[i] = v
	}
	return voice.FrameSamples, nil
}

type fakeCodec struct {
	encoderErr error
	encodeErr  error
	decodeErr  error
}

var _ voice.Codec = (*fakeCodec)(nil)

func (c *fakeCodec) NewEncoder() (voice.Encoder, error) {
	if c.encoderErr != nil {
		return nil, c.encoderErr
	}
	return &fakeEncoder{err: c.encodeErr}, nil
}

func (c *fakeCodec) NewDecoder() (voice.Decoder, error) {
	return &fakeDecoder{err: c.decodeErr}, nil
}

// recorder collects events delivered to the host callback.
type recorder struct {
	mu     sync.Mutex
	events []voice.NativeEvent
}

func (r *recorder) record(ev voice.NativeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []voice.NativeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]voice.NativeEvent(nil), r.events...)
}

// lifecycle returns every non-audio event.
func (r *recorder) lifecycle() []voice.NativeEvent {
	var out []voice.NativeEvent
	for _, ev := range r.snapshot() {
		if ev.Name != voice.EventNameAudioMixed && ev.Name != voice.EventNameAudioSpeaker {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) count(name string) int {
	n := 0
	for _, ev := range r.snapshot() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func event(t *testing.T, name string, payload any) voice.NativeEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return voice.NativeEvent{Name: name, Payload: string(data)}
}

func decode(t *testing.T, ev voice.NativeEvent, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(ev.Payload), v); err != nil {
		t.Fatalf("failed to decode %s payload %q: %v", ev.Name, ev.Payload, err)
	}
}

func audioPacket(t *testing.T, ssrc uint32, seq uint16, level int8) []byte {
	t.Helper()
	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    voice.PayloadTypeOpus,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * voice.FrameSamples,
			SSRC:           ssrc,
		},
		Payload: []byte{byte(level)},
	}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("failed to marshal packet: %v", err)
	}
	return raw
}

var errBoom = errors.New("boom")
