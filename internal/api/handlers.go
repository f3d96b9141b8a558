// Package api provides the HTTP surface of the Modle streak service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"modle-server/internal/model"
	"modle-server/internal/pkg/lock"
	"modle-server/internal/repository"
	"modle-server/internal/service"
)

// StreakService is the business-logic surface the handlers need.
// Implemented by service.StreakService.
type StreakService interface {
	Status(ctx context.Context, userID, language string) (*model.StreakState, error)
	Submit(ctx context.Context, userID, language string, correct bool, guesses []string) (*service.SubmitOutcome, error)
	Reset(ctx context.Context, userID string) (model.Modle, error)
}

// Pinger reports storage health. Implemented by db.Pool.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler bundles the HTTP handlers and their dependencies.
type Handler struct {
	streaks StreakService
	db      Pinger
}

// NewHandler creates a new Handler instance.
func NewHandler(streaks StreakService, db Pinger) *Handler {
	return &Handler{streaks: streaks, db: db}
}

// submitRequest is the POST /streak/result body. Any client-supplied date
// field is ignored; the submission day is always server-computed.
type submitRequest struct {
	Language string   `json:"language"`
	Correct  bool     `json:"correct"`
	Guesses  []string `json:"guesses"`
}

// conflictResponse is the 409 body for a day already solved.
type conflictResponse struct {
	Msg      string             `json:"msg"`
	Language *model.StreakState `json:"language"`
	Global   *model.StreakState `json:"global"`
}

// Status handles GET /api/v1/streak/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.streaks.Status(r.Context(), userID(r), r.URL.Query().Get("language"))
	if err != nil {
		h.respondStreakError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// SubmitResult handles POST /api/v1/streak/result.
func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	outcome, err := h.streaks.Submit(r.Context(), userID(r), req.Language, req.Correct, req.Guesses)
	if err != nil {
		h.respondStreakError(w, err, outcome)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// ResetUser handles POST /api/v1/admin/users/{userID}/reset.
func (h *Handler) ResetUser(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	if target == "" {
		respondError(w, http.StatusBadRequest, "missing user id")
		return
	}

	zero, err := h.streaks.Reset(r.Context(), target)
	if err != nil {
		h.respondStreakError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, zero)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondStreakError maps service errors onto the HTTP taxonomy.
func (h *Handler) respondStreakError(w http.ResponseWriter, err error, outcome *service.SubmitOutcome) {
	switch {
	case errors.Is(err, service.ErrAlreadyPlayed):
		body := conflictResponse{Msg: "already solved today's puzzle"}
		if outcome != nil {
			body.Language = outcome.Language
			body.Global = outcome.Global
		}
		respondJSON(w, http.StatusConflict, body)
	case errors.Is(err, service.ErrInvalidLanguage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, lock.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, "busy, retry shortly")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
