package schedule

import (
	"context"
	"time"
)

// RunAt calls execute in a new goroutine once runAt is reached. Nothing runs
// if ctx is done first. The returned channel is closed when the goroutine
// exits.
func RunAt(ctx context.Context, runAt time.Time, execute func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(time.Until(runAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		execute(ctx)
	}()
	return done
}
