package listing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/auth"
	"github.com/merchantops/gridview/internal/domain"
)

// Handler exposes grid listing as an HTTP endpoint.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHTTPHandler wraps the service with a POST endpoint.
func NewHTTPHandler(service *Service, logger *zap.Logger) http.Handler {
	return &Handler{service: service, logger: logger}
}

type sortPayload struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

type listPayload struct {
	ViewID      *uuid.UUID     `json:"viewId,omitempty"`
	Columns     []string       `json:"columns,omitempty"`
	Exclude     []string       `json:"exclude,omitempty"`
	ExcludeMode bool           `json:"excludeMode,omitempty"`
	Filter      map[string]any `json:"filter,omitempty"`
	Sort        []sortPayload  `json:"sort,omitempty"`
	Search      string         `json:"search,omitempty"`
	Page        int            `json:"page,omitempty"`
	PageSize    int            `json:"pageSize,omitempty"`
	GroupBy     string         `json:"groupBy,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var payload listPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sort := make([]domain.SortField, 0, len(payload.Sort))
	for _, s := range payload.Sort {
		sort = append(sort, domain.SortField{
			Column:    s.Column,
			Direction: domain.SortDirection(s.Direction),
		})
	}

	result, err := h.service.List(r.Context(), Request{
		UserID:      userID,
		Resource:    r.PathValue("resource"),
		ViewID:      payload.ViewID,
		Columns:     payload.Columns,
		Exclude:     payload.Exclude,
		ExcludeMode: payload.ExcludeMode,
		Filter:      payload.Filter,
		Sort:        sort,
		Search:      payload.Search,
		Page:        payload.Page,
		PageSize:    payload.PageSize,
		GroupBy:     payload.GroupBy,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// writeError maps domain sentinels onto HTTP statuses. Internal errors are
// logged but never echoed to the client.
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
