package recorder_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/voice-bridge/internal/datalayer"
	"github.com/glizzus/voice-bridge/internal/recorder"
	"github.com/glizzus/voice-bridge/internal/voice"
)

func mixedEvent(t *testing.T, sample int16) voice.NativeEvent {
	t.Helper()
	pcm := make([]byte, 2*voice.FrameSamples)
	for i := range voice.FrameSamples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(sample))
	}
	data, err := json.Marshal(voice.AudioPayload{
		SampleRate: voice.SampleRate,
		Channels:   1,
		Samples:    voice.FrameSamples,
		PCM:        voice.EncodeBase64PCM(pcm),
	})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return voice.NativeEvent{Name: voice.EventNameAudioMixed, Payload: string(data)}
}

func TestRecorderStopsAtDuration(t *testing.T) {
	rec := recorder.New(50 * time.Millisecond) // rounds up to 3 frames

	rec.OnEvent(voice.NativeEvent{Name: voice.EventNameConnected, Payload: `{"serverName":"guild"}`})
	for i := range 5 {
		rec.OnEvent(mixedEvent(t, int16(i+1)))
	}

	select {
	case <-rec.Done():
	default:
		t.Fatal("Done() is not closed after the duration was recorded")
	}
	if got := rec.Frames(); got != 3 {
		t.Errorf("Frames() = %d; want 3", got)
	}

	wav := rec.WAV()
	if got, want := len(wav), 44+3*2*voice.FrameSamples; got != want {
		t.Fatalf("WAV() has %d bytes; want %d", got, want)
	}
	lastSample := int16(binary.LittleEndian.Uint16(wav[len(wav)-2:]))
	if lastSample != 3 {
		t.Errorf("last recorded sample = %d; want 3", lastSample)
	}
}

func TestRecorderIgnoresMalformedAudio(t *testing.T) {
	rec := recorder.New(time.Second)
	rec.OnEvent(voice.NativeEvent{Name: voice.EventNameAudioMixed, Payload: `not json`})
	rec.OnEvent(voice.NativeEvent{Name: voice.EventNameAudioMixed, Payload: `{"pcm":"AAA"}`})
	if got := rec.Frames(); got != 0 {
		t.Errorf("Frames() = %d; want 0", got)
	}
}

func TestWAVFromPCM16Mono(t *testing.T) {
	wav := recorder.WAVFromPCM16Mono([]byte{1, 0, 2, 0}, 48000)

	type header struct {
		Riff, Wave, Fmt, Data string
		RiffLen, DataLen      uint32
		Channels, Bits        uint16
		SampleRate, ByteRate  uint32
	}
	got := header{
		Riff:       string(wav[0:4]),
		RiffLen:    binary.LittleEndian.Uint32(wav[4:]),
		Wave:       string(wav[8:12]),
		Fmt:        string(wav[12:16]),
		Channels:   binary.LittleEndian.Uint16(wav[22:]),
		SampleRate: binary.LittleEndian.Uint32(wav[24:]),
		ByteRate:   binary.LittleEndian.Uint32(wav[28:]),
		Bits:       binary.LittleEndian.Uint16(wav[34:]),
		Data:       string(wav[36:40]),
		DataLen:    binary.LittleEndian.Uint32(wav[40:]),
	}
	want := header{
		Riff: "RIFF", RiffLen: 40, Wave: "WAVE", Fmt: "fmt ",
		Channels: 1, SampleRate: 48000, ByteRate: 96000, Bits: 16,
		Data: "data", DataLen: 4,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{1, 0, 2, 0}, wav[44:]); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

type memoryStorage struct {
	key  string
	data []byte
	opts datalayer.PutOptions
}

func (s *memoryStorage) Put(_ context.Context, key string, data io.Reader, opts datalayer.PutOptions) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.key, s.data, s.opts = key, b, opts
	return nil
}

func TestRecorderUpload(t *testing.T) {
	rec := recorder.New(20 * time.Millisecond)
	rec.OnEvent(mixedEvent(t, 9))

	storage := &memoryStorage{}
	if err := rec.Upload(t.Context(), storage, "recordings/a.wav"); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if storage.key != "recordings/a.wav" {
		t.Errorf("uploaded key = %q; want recordings/a.wav", storage.key)
	}
	want := datalayer.PutOptions{Size: int64(44 + 2*voice.FrameSamples), ContentType: "audio/wav"}
	if diff := cmp.Diff(want, storage.opts); diff != "" {
		t.Errorf("PutOptions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rec.WAV(), storage.data); diff != "" {
		t.Errorf("uploaded data mismatch (-want +got):\n%s", diff)
	}
}
