package voice

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event names delivered to the host.
const (
	EventNameConnected    = "connected"
	EventNameDisconnected = "disconnected"
	EventNameReconnecting = "reconnecting"
	EventNameError        = "error"
	EventNameAudioSpeaker = "audioSpeaker"
	EventNameAudioMixed   = "audioMixed"
)

// Disconnect reasons.
const (
	ReasonStreamError      = "stream_error"
	ReasonEOF              = "eof"
	ReasonDisconnectError  = "disconnect_error"
	ReasonClientDisconnect = "client_disconnect"
)

// NativeEvent is what the host receives. Payload is JSON.
type NativeEvent struct {
	Name    string
	Payload string
}

type ConnectedPayload struct {
	ServerName string `json:"serverName"`
}

type DisconnectedPayload struct {
	Temporary bool   `json:"temporary"`
	Reason    string `json:"reason"`
}

type ReconnectingPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AudioPayload carries one 20ms mono frame. ClientID is set for
// audioSpeaker events only.
type AudioPayload struct {
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	Samples    int     `json:"samples"`
	PCM        string  `json:"pcm"`
	ClientID   *uint32 `json:"clientId,omitempty"`
}

func newNativeEvent(name string, payload any) NativeEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		// Every payload type above marshals.
		panic(err)
	}
	return NativeEvent{Name: name, Payload: string(data)}
}

// EventSink accepts events from the control loop. Emit must never block.
type EventSink interface {
	Emit(ev NativeEvent)
}

// DefaultEventQueueSize is the number of events a Bridge buffers for a slow
// callback before dropping.
const DefaultEventQueueSize = 1024

// Bridge delivers events to a host callback on its own goroutine. Events
// emitted with no callback registered, or while the queue is full, are
// dropped.
type Bridge struct {
	mu       sync.RWMutex
	callback func(NativeEvent)

	queue   chan NativeEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

var _ EventSink = (*Bridge)(nil)

func NewBridge(size int) *Bridge {
	if size <= 0 {
		size = DefaultEventQueueSize
	}
	b := &Bridge{
		queue: make(chan NativeEvent, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// SetCallback registers fn, replacing any previous callback. A nil fn
// unregisters.
func (b *Bridge) SetCallback(fn func(NativeEvent)) {
	b.mu.Lock()
	b.callback = fn
	b.mu.Unlock()
}

func (b *Bridge) Emit(ev NativeEvent) {
	b.mu.RLock()
	registered := b.callback != nil
	b.mu.RUnlock()
	if !registered {
		return
	}

	select {
	case <-b.stop:
		return
	default:
	}

	select {
	case b.queue <- ev:
	default:
		b.dropped.Add(1)
		eventsDropped.Inc()
		slog.Debug("dropped event for slow callback", "event", ev.Name)
	}
}

// Dropped returns the number of events lost to a full queue.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops delivery. Queued events that were not delivered yet are lost.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.stop) })
	<-b.done
}

func (b *Bridge) dispatch() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case ev := <-b.queue:
			b.mu.RLock()
			fn := b.callback
			b.mu.RUnlock()
			if fn != nil {
				fn(ev)
			}
		}
	}
}
