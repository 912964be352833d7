package sink

import (
	"context"
	"sync"

	"folio-chat/domain/event"
	"folio-chat/errors"
)

// ConnectionSink buffers the events of one live connection.
// The transport write loop drains Events and owns the socket.
type ConnectionSink struct {
	mu     sync.RWMutex
	closed bool
	Events chan event.Event
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &ConnectionSink{Events: make(chan event.Event, bufferSize)}
}

// Consume never blocks on a slow client: a full buffer drops the event.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

// Close ends the Events stream. Safe to call more than once.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.Events)
	}
}
