package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/domain/event"
	"folio-chat/registry"

	"github.com/mama165/sdk-go/logs"
)

// recordingSink keeps every event it consumed.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) received() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

func (s *recordingSink) named(name string) []event.Event {
	var out []event.Event
	for _, e := range s.received() {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

type harness struct {
	registry   *registry.MemoryRegistry
	hub        *Hub
	lifecycle  *LifecycleManager
	dispatcher *Dispatcher
	advance    func(time.Duration)
}

func newHarness(t *testing.T, repository contract.MessageRepository, trust bool) *harness {
	t.Helper()
	log := newTestLogger()

	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := registry.NewMemoryRegistry(registry.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	hub := NewHub()
	emitter := NewLocalEmitter(log, hub, time.Second, nil)
	registrar := NewRegistrar(reg, hub, DefaultSocketTTL)
	limiter := NewRateLimiter(reg, DefaultRateLimitWindow, DefaultRateLimitMax)

	return &harness{
		registry:   reg,
		hub:        hub,
		lifecycle:  NewLifecycleManager(log, reg, registrar, hub, emitter, trust, nil),
		dispatcher: NewDispatcher(log, reg, limiter, repository, emitter, nil, 2000, nil),
		advance: func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		},
	}
}

// connect attaches a recording sink and, when userID is set, registers it.
func (h *harness) connect(t *testing.T, connID domain.ConnectionID, userID domain.UserID) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	h.lifecycle.Connect(connID, sink)
	if userID != "" {
		if err := h.registrar().Register(context.Background(), connID, userID); err != nil {
			t.Fatalf("register %s: %v", connID, err)
		}
	}
	return sink
}

func (h *harness) registrar() *Registrar {
	return h.lifecycle.registrar
}
