//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"folio-chat/domain"
	"folio-chat/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SharedRegistry is the process-external store coordinating connection state across instances.
// Every operation is atomic at the registry; callers never lock around it.
type SharedRegistry interface {
	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetCardinality(ctx context.Context, key string) (int64, error)
	// Get reports false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// IncrWithExpiry increments key and sets its expiry when the new value is 1.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// MessageRepository persists chat messages keyed by conversation.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	ConversationExists(ctx context.Context, conversationID domain.ConversationID) (bool, error)
	// FindPaginated returns non-deleted messages between a and b, newest first, plus their total.
	FindPaginated(ctx context.Context, a, b domain.UserID, skip, limit int) ([]domain.Message, int, error)
	RecentConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error)
	MarkConversationRead(ctx context.Context, reader, other domain.UserID, at time.Time) (int, error)
	SoftDelete(ctx context.Context, messageID uuid.UUID, requester domain.UserID, at time.Time) error
}

// EventSink receives events for one live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// Emitter delivers an event to a connection, wherever that connection lives.
type Emitter interface {
	Emit(ctx context.Context, connID domain.ConnectionID, e event.Event) error
}

// LocalDeliverer delivers only to connections attached to this instance and
// reports whether the connection was found here.
type LocalDeliverer interface {
	Deliver(ctx context.Context, connID domain.ConnectionID, e event.Event) (bool, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, userID domain.UserID) (bool, error)
}

// IdentityResolver turns a credential into a user identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (domain.UserID, error)
}

// Censor rewrites message text before it is persisted.
type Censor interface {
	Censor(text string) string
}
