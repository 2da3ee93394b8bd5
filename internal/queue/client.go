package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"resume-gap-analyzer/internal/shared/telemetry"
)

// ErrDrop marks a delivery that can never succeed. Consumers remove it from
// the queue instead of leaving it for redelivery or dead-lettering.
var ErrDrop = errors.New("drop message")

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery is one received message.
type Delivery struct {
	Body      []byte
	MessageID string
	// Attempt is the broker's delivery count, starting at 1. Zero means the
	// broker does not report it.
	Attempt int
}

// Handler processes one delivery. A nil error or one wrapping ErrDrop removes
// the message; any other error leaves it to the broker's redelivery policy.
type Handler func(ctx context.Context, d Delivery) error

func settled(err error) bool {
	return err == nil || errors.Is(err, ErrDrop)
}

// drain waits for in-flight handlers. A positive timeout bounds the wait and
// logs event when it expires.
func drain(wg *sync.WaitGroup, timeout time.Duration, event string) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		telemetry.Warn(event, map[string]any{"timeout": timeout.String()})
	}
}
