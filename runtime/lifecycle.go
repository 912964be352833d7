package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/domain/event"
	"folio-chat/errors"
	"folio-chat/observability"
	"folio-chat/registry"
)

// LifecycleManager drives a connection through Connected -> Registered -> Disconnected.
type LifecycleManager struct {
	log                 *slog.Logger
	registry            contract.SharedRegistry
	registrar           *Registrar
	hub                 *Hub
	emitter             contract.Emitter
	trustClientIdentity bool
	metrics             *observability.Metrics
}

func NewLifecycleManager(log *slog.Logger, registry contract.SharedRegistry, registrar *Registrar,
	hub *Hub, emitter contract.Emitter, trustClientIdentity bool, metrics *observability.Metrics) *LifecycleManager {
	return &LifecycleManager{
		log:                 log,
		registry:            registry,
		registrar:           registrar,
		hub:                 hub,
		emitter:             emitter,
		trustClientIdentity: trustClientIdentity,
		metrics:             metrics,
	}
}

// Connect only attaches the connection locally, nothing is written to the registry yet.
func (m *LifecycleManager) Connect(connID domain.ConnectionID, sink contract.EventSink) {
	m.hub.Attach(connID, sink)
	m.metrics.ConnectionOpened()
	m.log.Info("User connected", "conn_id", connID)
}

// Register handles the "register" intent. sessionUser is the identity resolved from the
// connection credential, empty for anonymous connections. Failures are reported to the
// connection as REGISTER_FAILED and never close it.
func (m *LifecycleManager) Register(ctx context.Context, connID domain.ConnectionID,
	sessionUser domain.UserID, cmd chat.RegisterCommand) error {
	if m.hub.State(connID) == domain.Disconnected {
		// Raced with disconnect: writing the registry now would leave an orphan until the TTL
		m.log.Warn("Register ignored for a closed connection", "conn_id", connID)
		return errors.ErrSinkClosed
	}
	userID, err := m.resolveIdentity(sessionUser, cmd)
	if err == nil {
		err = m.registrar.Register(ctx, connID, userID)
	}
	if err != nil {
		m.metrics.Registration("failed")
		m.log.Error("Error registering user", "user_id", cmd.UserID, "conn_id", connID, "error", err)
		m.notify(ctx, connID, event.Error{Code: errors.CodeRegisterFailed, Message: errors.ClientMessage(err, errors.ErrRegisterFailed.Error())})
		return err
	}
	m.metrics.Registration("registered")
	m.metrics.SetLocalUsers(m.hub.GroupCount())
	m.log.Info(fmt.Sprintf("User %s registered with socket ID %s", userID, connID))
	return nil
}

func (m *LifecycleManager) resolveIdentity(sessionUser domain.UserID, cmd chat.RegisterCommand) (domain.UserID, error) {
	if err := cmd.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	var userID domain.UserID
	switch {
	case m.trustClientIdentity && cmd.UserID != "":
		userID = cmd.UserID
	case sessionUser == "":
		return "", errors.ErrUnauthenticated
	case cmd.UserID != "" && cmd.UserID != sessionUser:
		return "", errors.ErrIdentityMismatch
	default:
		userID = sessionUser
	}
	// Session identities follow the same rules as claimed ones
	if err := (chat.RegisterCommand{UserID: userID}).Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return userID, nil
}

// Disconnect is terminal and best-effort: failures are logged, never retried,
// and stale state left behind expires with the reverse mapping TTL.
func (m *LifecycleManager) Disconnect(ctx context.Context, connID domain.ConnectionID) {
	if m.hub.Detach(connID) {
		m.metrics.ConnectionClosed()
		m.metrics.SetLocalUsers(m.hub.GroupCount())
	}

	if err := m.cleanup(ctx, connID); err != nil {
		m.metrics.Disconnect("failed")
		m.log.Error("Error handling disconnect", "conn_id", connID, "error", err)
		return
	}
	m.metrics.Disconnect("cleaned")
}

// DisconnectAll runs disconnect cleanup for every connection still attached locally.
func (m *LifecycleManager) DisconnectAll(ctx context.Context) int {
	conns := m.hub.Connections()
	for _, connID := range conns {
		m.Disconnect(ctx, connID)
	}
	return len(conns)
}

func (m *LifecycleManager) cleanup(ctx context.Context, connID domain.ConnectionID) error {
	owner, ok, err := m.registry.Get(ctx, registry.SocketKey(connID))
	if err != nil {
		return err
	}
	if !ok {
		// Never registered, or already cleaned up
		m.log.Debug("Socket disconnected without registration", "conn_id", connID)
		return nil
	}
	userID := domain.UserID(owner)
	setKey := registry.UserSocketsKey(userID)

	if err = m.registry.SetRemove(ctx, setKey, string(connID)); err != nil {
		return err
	}
	if err = m.registry.Delete(ctx, registry.SocketKey(connID)); err != nil {
		return err
	}
	remaining, err := m.registry.SetCardinality(ctx, setKey)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err = m.registry.Delete(ctx, setKey); err != nil {
			return err
		}
		m.log.Info(fmt.Sprintf("User %s is fully disconnected", userID))
	}
	m.log.Info(fmt.Sprintf("Socket %s removed for user %s", connID, userID))
	return nil
}

func (m *LifecycleManager) notify(ctx context.Context, connID domain.ConnectionID, evt event.Event) {
	if err := m.emitter.Emit(ctx, connID, evt); err != nil {
		m.log.Warn("Failed to notify connection", "conn_id", connID, "event", evt.Name(), "error", err)
	}
}
