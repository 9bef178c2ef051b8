package generator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator produces UUIDv4 strings. Sessions use them as journal keys.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDV4Generator{}

// RecordingKeyGenerator names uploaded recordings of one guild as
// recordings/<guild>/<YYYY-MM-DD>/<id>.wav.
type RecordingKeyGenerator struct {
	Guild string
	IDs   Generator[string]
	Now   func() time.Time
}

func (g *RecordingKeyGenerator) Next() (string, error) {
	id, err := g.IDs.Next()
	if err != nil {
		return "", fmt.Errorf("failed to generate recording id: %w", err)
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return fmt.Sprintf("recordings/%s/%s/%s.wav", g.Guild, now().UTC().Format(time.DateOnly), id), nil
}

var _ Generator[string] = &RecordingKeyGenerator{}
