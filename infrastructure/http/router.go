// Package http exposes the request/response API next to the WebSocket upgrade route.
package http

import (
	"log/slog"
	"net/http"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/services"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	log                 *slog.Logger
	chat                *services.ChatService
	registry            contract.SharedRegistry
	defaultLimit        int
	maxLimit            int
	trustClientIdentity bool
}

func NewHandler(log *slog.Logger, chat *services.ChatService, registry contract.SharedRegistry,
	defaultLimit, maxLimit int, trustClientIdentity bool) *Handler {
	return &Handler{
		log:                 log,
		chat:                chat,
		registry:            registry,
		defaultLimit:        defaultLimit,
		maxLimit:            maxLimit,
		trustClientIdentity: trustClientIdentity,
	}
}

// NewRouter mounts the API, the upgrade route, health and metrics.
func NewRouter(handler *Handler, resolver contract.IdentityResolver, upgrade http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.log))

	r.Get("/healthz", handler.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if upgrade != nil {
		r.Method(http.MethodGet, "/ws", upgrade)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(loggingMiddleware(handler.log))
		r.Use(auth.Middleware(resolver, writeDomainError))

		r.Post("/messages", handler.getMessages)
		r.Get("/conversations", handler.recentConversations)
		r.Post("/conversations/{userId}/read", handler.markRead)
		r.Delete("/messages/{id}", handler.deleteMessage)
	})
	return r
}
