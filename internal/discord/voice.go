package discord

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pion/rtp"

	"github.com/glizzus/voice-bridge/internal/voice"
)

var (
	ErrSendTimeout      = errors.New("voice connection send timeout")
	ErrSessionClosed    = errors.New("voice session is closed")
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

const (
	DefaultSendTimeout = 40 * time.Millisecond
	readyPollInterval  = time.Second
	// reasonConnectionLost is reported when the voice websocket or UDP link
	// drops and discordgo starts reconnecting.
	reasonConnectionLost = "voice connection lost"
)

type voiceConn interface {
	Speaking(b bool) error
	Disconnect() error
}

// voiceSession exposes one discordgo voice connection as a voice.Session.
type voiceSession struct {
	conn  voiceConn
	send  chan<- []byte
	recv  <-chan *discordgo.Packet
	ready func() bool

	sendTimeout  time.Duration
	pollInterval time.Duration

	events chan voice.Event
	done   chan struct{}
	once   sync.Once
}

var _ voice.Session = (*voiceSession)(nil)

func newVoiceSession(vc *discordgo.VoiceConnection, serverName string, sendTimeout time.Duration) *voiceSession {
	s := &voiceSession{
		conn: vc,
		send: vc.OpusSend,
		recv: vc.OpusRecv,
		ready: func() bool {
			vc.RLock()
			defer vc.RUnlock()
			return vc.Ready
		},
		sendTimeout:  sendTimeout,
		pollInterval: readyPollInterval,
		events:       make(chan voice.Event, 16),
		done:         make(chan struct{}),
	}
	go s.run(serverName)
	return s
}

func (s *voiceSession) Events() <-chan voice.Event {
	return s.events
}

func (s *voiceSession) SendAudio(audio voice.OutAudio) error {
	if audio.Codec != voice.CodecOpusVoice && audio.Codec != voice.CodecOpusMusic {
		return ErrUnsupportedCodec
	}
	frame := bytes.Clone(audio.Data)

	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()
	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Disconnect leaves the channel. Discord has no farewell message, so message
// is only logged.
func (s *voiceSession) Disconnect(message string) error {
	var err error
	s.once.Do(func() {
		slog.Debug("leaving voice channel", "message", message)
		if serr := s.conn.Speaking(false); serr != nil {
			slog.Error("failed to stop speaking", "error", serr)
		}
		err = s.conn.Disconnect()
		close(s.done)
	})
	return err
}

func (s *voiceSession) run(serverName string) {
	defer close(s.events)

	if !s.emit(voice.Event{Kind: voice.EventSync, ServerName: serverName}) {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	ready := true
	for {
		select {
		case <-s.done:
			return
		case p, ok := <-s.recv:
			if !ok {
				return
			}
			raw, err := packetToRTP(p)
			if err != nil {
				slog.Debug("failed to encode received packet", "ssrc", p.SSRC, "error", err)
				continue
			}
			if !s.emit(voice.Event{Kind: voice.EventAudio, Audio: raw}) {
				return
			}
		case <-ticker.C:
			now := s.ready()
			if now == ready {
				continue
			}
			ready = now
			ev := voice.Event{Kind: voice.EventTemporaryDisconnect, Reason: reasonConnectionLost}
			if now {
				ev = voice.Event{Kind: voice.EventSync, ServerName: serverName}
			}
			if !s.emit(ev) {
				return
			}
		}
	}
}

func (s *voiceSession) emit(ev voice.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func packetToRTP(p *discordgo.Packet) ([]byte, error) {
	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    voice.PayloadTypeOpus,
			SequenceNumber: p.Sequence,
			Timestamp:      p.Timestamp,
			SSRC:           p.SSRC,
		},
		Payload: p.Opus,
	}
	return pkt.Marshal()
}
