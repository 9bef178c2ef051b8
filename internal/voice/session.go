package voice

import "context"

type EventKind int

const (
	// EventSync reports that the server roster is in sync. The first sync
	// after joining marks the session as connected.
	EventSync EventKind = iota + 1
	// EventAudio carries one RTP-encoded audio packet from a remote speaker.
	EventAudio
	// EventTemporaryDisconnect reports a transient drop the session is
	// recovering from.
	EventTemporaryDisconnect
	// EventOther covers protocol events the bridge does not act on.
	EventOther
)

// Event is one item of a session's event stream. A non-nil Err is a stream
// error and ends the stream. A closed channel is end of input.
type Event struct {
	Kind       EventKind
	ServerName string
	Audio      []byte
	Reason     string
	Err        error
}

type CodecType int

const (
	CodecOpusVoice CodecType = iota + 1
	CodecOpusMusic
)

// OutAudio is one encoded outbound audio packet.
type OutAudio struct {
	Codec CodecType
	Data  []byte
}

// Session is an open voice chat connection. Implementations must not
// retain OutAudio.Data after SendAudio returns.
type Session interface {
	Events() <-chan Event
	SendAudio(audio OutAudio) error
	// Disconnect starts a graceful shutdown. The event stream is closed once
	// the server acknowledged it.
	Disconnect(message string) error
}

type Dialer interface {
	Dial(ctx context.Context, opts ConnectOptions, id Identity) (Session, error)
}

type Encoder interface {
	EncodeFloat32(pcm []float32, data []byte) (int, error)
}

type Decoder interface {
	DecodeFloat32(data []byte, pcm []float32) (int, error)
}

// Codec creates 48kHz encoders (mono, voice tuned) and decoders (stereo).
type Codec interface {
	NewEncoder() (Encoder, error)
	NewDecoder() (Decoder, error)
}
