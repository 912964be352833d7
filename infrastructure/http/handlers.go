package http

import (
	"encoding/json"
	"net/http"

	"folio-chat/auth"
	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/errors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Ping(r.Context()); err != nil {
		h.log.Warn("Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE", "shared registry unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getMessages reads the two participants from the body and the page from the query.
func (h *Handler) getMessages(w http.ResponseWriter, r *http.Request) {
	var cmd chat.GetMessagesCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Both user IDs are required")
		return
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Both user IDs are required")
		return
	}
	if !h.trustClientIdentity {
		requester := auth.UserIDFromContext(r.Context())
		if requester == "" {
			writeDomainError(w, errors.ErrUnauthenticated)
			return
		}
		if requester != cmd.User1 && requester != cmd.User2 {
			writeDomainError(w, errors.ErrForbidden)
			return
		}
	}
	query := r.URL.Query()
	cmd.Page = domain.NormalizePage(query.Get("page"), query.Get("limit"), h.defaultLimit, h.maxLimit)

	result, err := h.chat.GetMessages(r.Context(), cmd)
	if err != nil {
		h.log.Error("Error fetching messages", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"message":    "Messages fetched successfully",
		"data":       result.Data,
		"pagination": result.Pagination,
	})
}

func (h *Handler) recentConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	summaries, err := h.chat.RecentConversations(r.Context(), userID)
	if err != nil {
		h.log.Error("Error fetching conversations", "user_id", userID, "error", err)
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, summaries)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	updated, err := h.chat.MarkRead(r.Context(), userID, domain.UserID(chi.URLParam(r, "userId")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid message id")
		return
	}
	if err := h.chat.DeleteMessage(r.Context(), messageID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeDomainError(w, errors.ErrUnauthenticated)
		return "", false
	}
	return userID, true
}
