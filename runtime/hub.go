package runtime

import (
	"sync"

	"folio-chat/contract"
	"folio-chat/domain"
)

type Set map[domain.ConnectionID]struct{}

type session struct {
	sink  contract.EventSink
	state domain.ConnectionState
	user  domain.UserID
}

// Hub tracks the connections living on this instance: their sink, their state,
// and the broadcast group (named after the user) each registered connection joined.
// Cross-instance state lives in the shared registry, never here.
type Hub struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*session
	groups   map[domain.UserID]Set
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[domain.ConnectionID]*session),
		groups:   make(map[domain.UserID]Set),
	}
}

// Attach records a freshly connected transport connection.
func (h *Hub) Attach(connID domain.ConnectionID, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[connID] = &session{sink: sink, state: domain.Connected}
}

// Join puts a connection in the group of userID and marks it registered.
// Joining twice is harmless.
func (h *Hub) Join(userID domain.UserID, connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[connID]
	if !ok {
		return
	}
	if s.user != "" && s.user != userID {
		h.leave(s.user, connID)
	}
	s.user = userID
	s.state = domain.Registered

	if _, ok := h.groups[userID]; !ok {
		h.groups[userID] = make(Set)
	}
	h.groups[userID][connID] = struct{}{}
}

// Detach forgets a connection and leaves its group; empty groups are removed.
// It reports false when the connection was not attached.
func (h *Hub) Detach(connID domain.ConnectionID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[connID]
	if !ok {
		return false
	}
	s.state = domain.Disconnected
	if s.user != "" {
		h.leave(s.user, connID)
	}
	delete(h.sessions, connID)
	return true
}

func (h *Hub) leave(userID domain.UserID, connID domain.ConnectionID) {
	if members, ok := h.groups[userID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, userID)
		}
	}
}

func (h *Hub) Sink(connID domain.ConnectionID) (contract.EventSink, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

// State reports Disconnected for unknown connections.
func (h *Hub) State(connID domain.ConnectionID) domain.ConnectionState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[connID]; ok {
		return s.state
	}
	return domain.Disconnected
}

// Connections lists every local connection.
func (h *Hub) Connections() []domain.ConnectionID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.ConnectionID, 0, len(h.sessions))
	for connID := range h.sessions {
		out = append(out, connID)
	}
	return out
}

func (h *Hub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}
