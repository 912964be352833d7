package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/domain/event"
	"folio-chat/errors"
	"folio-chat/observability"
	"folio-chat/registry"

	"github.com/samber/lo"
)

// Dispatcher turns a "sendMessage" intent into a persisted message delivered to
// every live connection of both participants.
//
// Persistence happens-before any emission: a crash in between leaves the message
// stored but undelivered in real time, and clients recover it through the paginated fetch.
type Dispatcher struct {
	log              *slog.Logger
	registry         contract.SharedRegistry
	limiter          contract.RateLimiter
	repository       contract.MessageRepository
	emitter          contract.Emitter
	censor           contract.Censor
	maxMessageLength int
	metrics          *observability.Metrics
	now              func() time.Time
}

func NewDispatcher(log *slog.Logger, registry contract.SharedRegistry, limiter contract.RateLimiter,
	repository contract.MessageRepository, emitter contract.Emitter, censor contract.Censor,
	maxMessageLength int, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:              log,
		registry:         registry,
		limiter:          limiter,
		repository:       repository,
		emitter:          emitter,
		censor:           censor,
		maxMessageLength: maxMessageLength,
		metrics:          metrics,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// HandleSend is the transport entry point. Any failure becomes an "error" event
// emitted to the originating connection only.
func (d *Dispatcher) HandleSend(ctx context.Context, origin domain.ConnectionID, cmd chat.SendMessageCommand) {
	if _, err := d.Send(ctx, origin, cmd); err != nil {
		code := errors.Code(err)
		d.metrics.SendFailed(code)
		d.log.Error("Error sending message", "conn_id", origin, "code", code, "error", err)
		evt := event.Error{Code: code, Message: errors.ClientMessage(err, "Failed to send message")}
		if emitErr := d.emitter.Emit(ctx, origin, evt); emitErr != nil {
			d.log.Warn("Failed to report send error", "conn_id", origin, "error", emitErr)
		}
	}
}

// Send runs validation, identity resolution, rate limiting, persistence and fan-out, in that order.
func (d *Dispatcher) Send(ctx context.Context, origin domain.ConnectionID, cmd chat.SendMessageCommand) (domain.Message, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if cmd.TooLong(d.maxMessageLength) {
		return domain.Message{}, errors.ErrMessageTooLong
	}

	owner, ok, err := d.registry.Get(ctx, registry.SocketKey(origin))
	if err != nil {
		return domain.Message{}, fmt.Errorf("resolve sender of %s: %w", origin, err)
	}
	if !ok {
		d.log.Warn(fmt.Sprintf("Unregistered socket %s attempted to send a message", origin))
		return domain.Message{}, errors.ErrNotRegistered
	}
	sender := domain.UserID(owner)

	if sender == cmd.To {
		return domain.Message{}, errors.ErrSelfMessage
	}

	allowed, err := d.limiter.Allow(ctx, sender)
	if err != nil {
		return domain.Message{}, fmt.Errorf("rate limit of %s: %w", sender, err)
	}
	if !allowed {
		d.log.Warn(fmt.Sprintf("Rate limit exceeded for user %s", sender))
		return domain.Message{}, errors.ErrRateLimited
	}

	text := cmd.Text
	if d.censor != nil {
		text = d.censor.Censor(text)
	}
	message := domain.NewMessage(sender, cmd.To, text, d.now())

	// Checked before the insert so the very first message counts as new
	exists, err := d.repository.ConversationExists(ctx, message.ConversationID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	isNewConversation := !exists

	message, err = d.repository.Create(ctx, message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	d.fanout(ctx, origin, message, isNewConversation)
	d.metrics.MessageSent(isNewConversation)
	d.log.Info(fmt.Sprintf("Message sent from %s to %s", sender, cmd.To))
	return message, nil
}

// fanout is best-effort: a failed lookup or emission is logged and the others proceed.
func (d *Dispatcher) fanout(ctx context.Context, origin domain.ConnectionID, message domain.Message, isNewConversation bool) {
	payload := event.NewReceiveMessage(message)

	recipientConns := d.liveConnections(ctx, message.RecipientID)
	senderConns := lo.Uniq(append([]domain.ConnectionID{origin}, d.liveConnections(ctx, message.SenderID)...))

	d.emitAll(ctx, recipientConns, payload)
	d.emitAll(ctx, senderConns, payload)

	if isNewConversation {
		d.emitAll(ctx, recipientConns, event.RevalidateConversations{With: message.SenderID})
		d.emitAll(ctx, senderConns, event.RevalidateConversations{With: message.RecipientID})
	}
}

// liveConnections returns the members of userSockets:<user> whose reverse mapping
// still points at user. Members without one are stale and skipped.
func (d *Dispatcher) liveConnections(ctx context.Context, userID domain.UserID) []domain.ConnectionID {
	members, err := d.registry.SetMembers(ctx, registry.UserSocketsKey(userID))
	if err != nil {
		d.log.Warn("Failed to look up user sockets", "user_id", userID, "error", err)
		return nil
	}
	var live []domain.ConnectionID
	for _, member := range members {
		connID := domain.ConnectionID(member)
		owner, ok, err := d.registry.Get(ctx, registry.SocketKey(connID))
		if err != nil {
			d.log.Warn("Failed to check socket owner", "conn_id", connID, "error", err)
			continue
		}
		if !ok || domain.UserID(owner) != userID {
			d.log.Debug("Skipping stale socket", "conn_id", connID, "user_id", userID)
			continue
		}
		live = append(live, connID)
	}
	return live
}

func (d *Dispatcher) emitAll(ctx context.Context, conns []domain.ConnectionID, evt event.Event) {
	for _, connID := range conns {
		if err := d.emitter.Emit(ctx, connID, evt); err != nil {
			d.log.Warn("Failed to emit event", "conn_id", connID, "event", evt.Name(), "error", err)
		}
	}
}
