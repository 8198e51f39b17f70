package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type handlers struct {
	gate         *auth.Gate
	chatService  inbound.ChatService
	categoryRepo outbound.CategoryRepository
	logger       zerolog.Logger
}

type contextKey string

const userContextKey contextKey = "user"

// requireAuth resolves the bearer token to a user and stashes it on the
// request context. The token rides either in the Authorization header or, for
// parity with the WebSocket endpoints, in the tokens query parameter.
func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("tokens")
		if header := r.Header.Get("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}

		user, err := h.gate.Authenticate(r.Context(), token)
		if err != nil {
			h.respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(r *http.Request) *shared.User {
	user, _ := r.Context().Value(userContextKey).(*shared.User)
	return user
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryRepo.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	views := make([]*inbound.CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, &inbound.CategoryView{Key: c.ID, Value: c.Name})
	}

	h.respondJSON(w, http.StatusOK, views)
}

func (h *handlers) checkConnection(w http.ResponseWriter, r *http.Request) {
	sellerID, err := uuid.Parse(chi.URLParam(r, "sellerId"))
	if err != nil {
		h.respondError(w, shared.ErrInvalidRequest)
		return
	}

	check, err := h.chatService.CheckConnection(r.Context(), principalFrom(r), sellerID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, check)
}

func (h *handlers) fetchMessages(w http.ResponseWriter, r *http.Request) {
	connectionID, err := strconv.ParseInt(chi.URLParam(r, "connectionId"), 10, 64)
	if err != nil {
		h.respondError(w, shared.ErrInvalidRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	messages, err := h.chatService.FetchMessages(r.Context(), principalFrom(r), connectionID, page)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, messages)
}

func (h *handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps domain errors onto HTTP statuses, masking anything not
// meant for clients.
func (h *handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, shared.ErrTokenRequired), errors.Is(err, shared.ErrTokenInvalid):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, shared.ErrConnectionNotFound),
		errors.Is(err, shared.ErrUserNotFound),
		errors.Is(err, shared.ErrAuctionNotFound),
		errors.Is(err, shared.ErrCategoryNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case shared.IsClientVisible(err):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		h.logger.Error().Err(err).Msg("Request failed")
	}

	h.respondJSON(w, status, map[string]string{"error": message})
}
