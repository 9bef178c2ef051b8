package eventsink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/glizzus/voice-bridge/internal/voice"
)

const defaultHandleTimeout = 5 * time.Second

// Dispatcher fans lifecycle events of one session out to handlers.
type Dispatcher struct {
	sessionID string
	handlers  []Handler
	timeout   time.Duration
	now       func() time.Time
}

func NewDispatcher(sessionID string, handlers ...Handler) *Dispatcher {
	return &Dispatcher{
		sessionID: sessionID,
		handlers:  handlers,
		timeout:   defaultHandleTimeout,
		now:       time.Now,
	}
}

// OnEvent has the signature of a voice client callback. Handler failures are
// logged and do not stop the remaining handlers.
func (d *Dispatcher) OnEvent(ev voice.NativeEvent) {
	if !lifecycle(ev.Name) {
		return
	}
	record := Record{
		SessionID: d.sessionID,
		Name:      ev.Name,
		Payload:   json.RawMessage(ev.Payload),
		At:        d.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	for _, h := range d.handlers {
		if err := h.HandleEvents(ctx, record); err != nil {
			slog.Error(
				"failed to handle session event",
				"sessionID", d.sessionID,
				"name", ev.Name,
				"error", err,
			)
		}
	}
}

func lifecycle(name string) bool {
	switch name {
	case voice.EventNameAudioMixed, voice.EventNameAudioSpeaker:
		return false
	default:
		return true
	}
}
