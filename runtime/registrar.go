package runtime

import (
	"context"
	"fmt"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/registry"
)

const DefaultSocketTTL = 24 * time.Hour

// Registrar binds a connection to a user in the shared registry (both directions)
// and joins the connection to the user's broadcast group.
type Registrar struct {
	registry  contract.SharedRegistry
	hub       *Hub
	socketTTL time.Duration
}

func NewRegistrar(registry contract.SharedRegistry, hub *Hub, socketTTL time.Duration) *Registrar {
	if socketTTL <= 0 {
		socketTTL = DefaultSocketTTL
	}
	return &Registrar{registry: registry, hub: hub, socketTTL: socketTTL}
}

// Register is idempotent. The TTL on the reverse mapping bounds leaks when a
// process dies without running disconnect cleanup. Re-registering under another
// user first releases the connection from the previous owner's set.
func (r *Registrar) Register(ctx context.Context, connID domain.ConnectionID, userID domain.UserID) error {
	previous, ok, err := r.registry.Get(ctx, registry.SocketKey(connID))
	if err != nil {
		return fmt.Errorf("lookup socket %s: %w", connID, err)
	}
	if ok && previous != string(userID) {
		if err := r.release(ctx, connID, domain.UserID(previous)); err != nil {
			return err
		}
	}
	if err := r.registry.SetAdd(ctx, registry.UserSocketsKey(userID), string(connID)); err != nil {
		return fmt.Errorf("add socket %s to user %s: %w", connID, userID, err)
	}
	if err := r.registry.SetWithTTL(ctx, registry.SocketKey(connID), string(userID), r.socketTTL); err != nil {
		return fmt.Errorf("bind socket %s to user %s: %w", connID, userID, err)
	}
	r.hub.Join(userID, connID)
	return nil
}

// release removes connID from the set of userID, deleting the set once empty.
func (r *Registrar) release(ctx context.Context, connID domain.ConnectionID, userID domain.UserID) error {
	setKey := registry.UserSocketsKey(userID)
	if err := r.registry.SetRemove(ctx, setKey, string(connID)); err != nil {
		return fmt.Errorf("release socket %s from user %s: %w", connID, userID, err)
	}
	remaining, err := r.registry.SetCardinality(ctx, setKey)
	if err != nil {
		return fmt.Errorf("count sockets of user %s: %w", userID, err)
	}
	if remaining == 0 {
		return r.registry.Delete(ctx, setKey)
	}
	return nil
}
