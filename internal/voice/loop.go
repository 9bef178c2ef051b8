package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type command interface {
	isCommand()
}

type pushFrameCmd struct {
	samples []int16
}

type disconnectCmd struct {
	message string
	ack     chan error
}

func (pushFrameCmd) isCommand()  {}
func (disconnectCmd) isCommand() {}

// sessionSink forwards the events of one loop until the loop is retired.
type sessionSink struct {
	mu      sync.RWMutex
	sink    EventSink
	retired bool
}

func (s *sessionSink) Emit(ev NativeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.retired {
		return
	}
	s.sink.Emit(ev)
}

// retire drops every later event. Emits in flight finish first.
func (s *sessionSink) retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

// readiness resolves the connect handshake at most once.
type readiness struct {
	ch chan error
}

func (r *readiness) resolve(err error) {
	if r.ch == nil {
		return
	}
	r.ch <- err
	close(r.ch)
	r.ch = nil
}

// drop closes the channel without a value if it is still pending.
func (r *readiness) drop() {
	if r.ch == nil {
		return
	}
	close(r.ch)
	r.ch = nil
}

// loop owns the session for its whole lifetime. Its liveness cell and sink
// belong to this loop alone; the Client stops reading them once the loop is
// replaced. Failures are emitted before readiness is resolved so they reach
// the host before Connect returns.
type loop struct {
	dialer    Dialer
	codec     Codec
	sink      EventSink
	logger    *slog.Logger
	connected *atomic.Bool

	opts     ConnectOptions
	identity Identity
	commands <-chan command
	ready    readiness

	tickInterval      time.Duration
	disconnectTimeout time.Duration
	jitterCapacity    int

	session Session
	encoder *FrameEncoder
	mixer   *Mixer
}

func (l *loop) run(ctx context.Context) {
	activeSessions.Inc()
	defer activeSessions.Dec()
	defer l.ready.drop()

	session, err := l.dialer.Dial(ctx, l.opts, l.identity)
	if err != nil {
		err = fmt.Errorf("failed to connect: %w", err)
		l.emitError(CodeConnect, err)
		l.ready.resolve(err)
		return
	}
	l.session = session

	enc, err := l.codec.NewEncoder()
	if err != nil {
		err = fmt.Errorf("failed to create audio encoder: %w", err)
		l.emitError(CodeAudioEncode, err)
		l.ready.resolve(err)
		l.abandon()
		return
	}
	l.encoder = NewFrameEncoder(enc)
	l.mixer = NewMixer(l.codec, l.jitterCapacity)
	defer l.mixer.Reset()

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	events := session.Events()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("session loop aborted", "address", l.opts.Address)
			l.connected.Store(false)
			l.abandon()
			return
		case cmd := <-l.commands:
			switch cmd := cmd.(type) {
			case pushFrameCmd:
				l.sendFrames(cmd.samples)
			case disconnectCmd:
				l.teardown(ctx, events, cmd)
				return
			}
		case <-ticker.C:
			l.tick()
		case ev, ok := <-events:
			if !ok {
				l.logger.Info("session stream ended", "address", l.opts.Address)
				l.connected.Store(false)
				l.emitDisconnected(ReasonEOF)
				l.ready.resolve(ErrDisconnectedEarly)
				return
			}
			if done := l.handleEvent(ev); done {
				return
			}
		}
	}
}

// handleEvent reports whether the loop must end.
func (l *loop) handleEvent(ev Event) bool {
	if ev.Err != nil {
		l.logger.Warn("session stream failed", "error", ev.Err)
		l.connected.Store(false)
		l.emitError(CodeStream, ev.Err)
		l.emitDisconnected(ReasonStreamError)
		l.ready.resolve(fmt.Errorf("connection failed: %w", ev.Err))
		return true
	}

	switch ev.Kind {
	case EventSync:
		if !l.connected.Swap(true) {
			l.logger.Info("session connected", "server", ev.ServerName)
			l.ready.resolve(nil)
			l.sink.Emit(newNativeEvent(EventNameConnected, ConnectedPayload{ServerName: ev.ServerName}))
		}
	case EventAudio:
		if err := l.mixer.HandlePacket(ev.Audio); err != nil && !isTransient(err) {
			l.emitError(CodeAudioDecode, err)
		}
	case EventTemporaryDisconnect:
		l.logger.Info("session reconnecting", "reason", ev.Reason)
		l.connected.Store(false)
		l.sink.Emit(newNativeEvent(EventNameReconnecting, ReconnectingPayload{Reason: ev.Reason}))
	}
	return false
}

func (l *loop) sendFrames(samples []int16) {
	windows := SplitFrames(samples)
	for i := range windows {
		payload, err := l.encoder.Encode(&windows[i])
		if err != nil {
			framesOut.WithLabelValues("encode_error").Inc()
			l.logger.Debug("failed to encode frame", "error", err)
			l.emitError(CodeAudioEncode, err)
			continue
		}
		if err := l.session.SendAudio(OutAudio{Codec: CodecOpusVoice, Data: payload}); err != nil {
			framesOut.WithLabelValues("send_error").Inc()
			l.logger.Debug("failed to send frame", "error", err)
			l.emitError(CodeSendAudio, fmt.Errorf("failed to send audio: %w", err))
			continue
		}
		framesOut.WithLabelValues("sent").Inc()
	}
}

func (l *loop) tick() {
	mix := l.mixer.Tick()
	for _, s := range mix.Speakers {
		id := uint32(s.ClientID)
		l.sink.Emit(newNativeEvent(EventNameAudioSpeaker, audioPayload(s.Samples, &id)))
	}
	l.sink.Emit(newNativeEvent(EventNameAudioMixed, audioPayload(mix.Mixed, nil)))
}

// teardown runs the graceful disconnect handshake and resolves cmd.ack.
func (l *loop) teardown(ctx context.Context, events <-chan Event, cmd disconnectCmd) {
	l.logger.Info("disconnecting session", "message", cmd.message)

	if err := l.session.Disconnect(cmd.message); err != nil {
		err = fmt.Errorf("failed to disconnect: %w", err)
		l.connected.Store(false)
		l.emitError(CodeDisconnect, err)
		l.emitDisconnected(ReasonDisconnectError)
		cmd.ack <- err
		return
	}

	timer := time.NewTimer(l.disconnectTimeout)
	defer timer.Stop()

	result := l.drain(ctx, events, timer.C)

	l.connected.Store(false)
	l.emitDisconnected(ReasonClientDisconnect)
	cmd.ack <- result
}

// drain consumes events until the stream ends, fails or the timer fires.
func (l *loop) drain(ctx context.Context, events <-chan Event, timeout <-chan time.Time) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				err := fmt.Errorf("stream failed while disconnecting: %w", ev.Err)
				l.emitError(CodeDisconnect, err)
				return err
			}
			if ev.Kind == EventTemporaryDisconnect {
				l.connected.Store(false)
				l.sink.Emit(newNativeEvent(EventNameReconnecting, ReconnectingPayload{Reason: ev.Reason}))
			}
		case <-timeout:
			l.logger.Warn("graceful disconnect timed out", "timeout", l.disconnectTimeout)
			l.emitError(CodeDisconnectTimeout, ErrDisconnectTimeout)
			return ErrDisconnectTimeout
		case <-ctx.Done():
			return ErrDisconnectInterrupted
		}
	}
}

// abandon drops the session without waiting for the server.
func (l *loop) abandon() {
	if err := l.session.Disconnect(""); err != nil {
		l.logger.Debug("failed to disconnect abandoned session", "error", err)
	}
}

func (l *loop) emitError(code string, err error) {
	l.sink.Emit(newNativeEvent(EventNameError, ErrorPayload{Code: code, Message: err.Error()}))
}

func (l *loop) emitDisconnected(reason string) {
	l.sink.Emit(newNativeEvent(EventNameDisconnected, DisconnectedPayload{Reason: reason}))
}

func audioPayload(samples []float32, clientID *uint32) AudioPayload {
	return AudioPayload{
		SampleRate: SampleRate,
		Channels:   1,
		Samples:    FrameSamples,
		PCM:        EncodeBase64PCM(floatToPCM(samples)),
		ClientID:   clientID,
	}
}
