package views

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/auth"
	"github.com/merchantops/gridview/internal/domain"
)

// Handler exposes view management endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHTTPHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register wires the view routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/resources/{resource}/views", h.list)
	mux.HandleFunc("POST /api/resources/{resource}/views", h.create)
	mux.HandleFunc("GET /api/views/{id}", h.get)
	mux.HandleFunc("PUT /api/views/{id}", h.update)
	mux.HandleFunc("DELETE /api/views/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summaries, err := h.service.ListForResource(r.Context(), userID, r.PathValue("resource"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var input domain.ViewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.Create(r.Context(), userID, r.PathValue("resource"), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	viewID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid view id", http.StatusBadRequest)
		return
	}

	view, err := h.service.Get(r.Context(), userID, viewID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	viewID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid view id", http.StatusBadRequest)
		return
	}

	var input domain.ViewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.Update(r.Context(), userID, viewID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// delete removes a view and responds with the default view the client
// should fall back to.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	viewID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid view id", http.StatusBadRequest)
		return
	}

	fallback, err := h.service.Delete(r.Context(), userID, viewID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fallback)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		http.Error(w, "access denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrUnknownEntity), errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
