// Package websocket is the real-time transport: it upgrades HTTP requests,
// resolves the session identity and translates frames to runtime calls.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/runtime"

	"github.com/gorilla/websocket"
)

type Handler struct {
	log                 *slog.Logger
	upgrader            websocket.Upgrader
	resolver            contract.IdentityResolver
	lifecycle           *runtime.LifecycleManager
	dispatcher          *runtime.Dispatcher
	bufferSize          int
	trustClientIdentity bool

	mu      sync.Mutex
	closing bool
	clients map[domain.ConnectionID]*Client
	wg      sync.WaitGroup
}

func NewHandler(log *slog.Logger, resolver contract.IdentityResolver, lifecycle *runtime.LifecycleManager,
	dispatcher *runtime.Dispatcher, bufferSize int, trustClientIdentity bool) *Handler {
	return &Handler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		resolver:            resolver,
		lifecycle:           lifecycle,
		dispatcher:          dispatcher,
		bufferSize:          bufferSize,
		trustClientIdentity: trustClientIdentity,
		clients:             make(map[domain.ConnectionID]*Client),
	}
}

// ServeHTTP resolves the credential, upgrades, and serves the connection until it closes.
// Without a trusted client identity, a credential is mandatory.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosing() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	var sessionUser domain.UserID
	if credential := auth.CredentialFromRequest(r); credential != "" {
		userID, err := h.resolver.Resolve(r.Context(), credential)
		if err != nil {
			h.log.Warn("WebSocket connection rejected: invalid credential", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		sessionUser = userID
	} else if !h.trustClientIdentity {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade WebSocket", "error", err)
		return
	}

	client := newClient(h.log, conn, sessionUser, h.bufferSize, h.lifecycle, h.dispatcher)
	if !h.track(client) {
		// Shutdown started while upgrading
		closeGoingAway(conn)
		_ = conn.Close()
		return
	}
	defer h.untrack(client)

	h.lifecycle.Connect(client.id, client.sink)
	go client.WritePump()
	client.ReadPump(context.WithoutCancel(r.Context()))
}

func (h *Handler) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// track refuses new clients once Shutdown started, so wg.Add never races wg.Wait.
func (h *Handler) track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c.id] = c
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	h.wg.Done()
}

func closeGoingAway(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Shutdown refuses new upgrades, closes every live connection and waits for
// their disconnect cleanup, or for ctx to end. Connections still attached at the
// deadline are cleaned up directly.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	h.closing = true
	for _, c := range h.clients {
		closeGoingAway(c.conn)
		_ = c.conn.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.log.Info("All connections drained")
	case <-ctx.Done():
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		n := h.lifecycle.DisconnectAll(cleanupCtx)
		h.log.Warn("Shutdown deadline reached with connections still open", "cleaned", n)
	}
}
