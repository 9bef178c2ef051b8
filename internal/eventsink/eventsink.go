// Package eventsink forwards session lifecycle events to durable or external
// destinations.
//
// A Dispatcher is registered as the voice client's event callback. It turns
// each lifecycle event into a Record and hands it to every configured
// Handler. Audio events never reach the handlers.
package eventsink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream lifecycle records are appended to.
const DefaultStream = "voice_bridge_events"

// Record is one lifecycle event of one session.
type Record struct {
	SessionID string
	Name      string
	Payload   json.RawMessage
	At        time.Time
}

type Handler interface {
	HandleEvents(ctx context.Context, records ...Record) error
}

type PrintingHandler struct{}

var _ Handler = (*PrintingHandler)(nil)

func (h *PrintingHandler) HandleEvents(ctx context.Context, records ...Record) error {
	for _, r := range records {
		slog.InfoContext(
			ctx,
			"session event",
			slog.String("sessionID", r.SessionID),
			slog.String("name", r.Name),
			slog.String("payload", string(r.Payload)),
			slog.String("at", r.At.Format(time.RFC3339)),
		)
	}
	return nil
}

// RedisStreamHandler appends records to a Redis stream so other processes can
// follow sessions.
type RedisStreamHandler struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamHandler writes to stream, or DefaultStream when it is empty.
// The stream is trimmed to roughly maxLen entries; zero disables trimming.
func NewRedisStreamHandler(client *redis.Client, stream string, maxLen int64) *RedisStreamHandler {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamHandler{client: client, stream: stream, maxLen: maxLen}
}

var _ Handler = (*RedisStreamHandler)(nil)

func (h *RedisStreamHandler) HandleEvents(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := h.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, r := range records {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: h.stream,
				MaxLen: h.maxLen,
				Approx: h.maxLen > 0,
				Values: map[string]any{
					"sessionID": r.SessionID,
					"name":      r.Name,
					"payload":   string(r.Payload),
					"at":        r.At.Format(time.RFC3339Nano),
				},
			})
		}
		return nil
	})
	return err
}
