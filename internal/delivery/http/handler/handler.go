package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/delivery/http/middleware"
	"github.com/user/seo-snapshot-service/internal/delivery/http/response"
	"github.com/user/seo-snapshot-service/internal/usecase"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PingFunc reports whether a backing service is reachable.
type PingFunc func(ctx context.Context) error

type Handler struct {
	websites    usecase.WebsiteManager
	snapshots   usecase.SnapshotManager
	comparator  usecase.Comparator
	competitors usecase.CompetitorAnalyzer
	pingers     map[string]PingFunc
	logger      *zap.Logger
}

func NewHandler(
	websites usecase.WebsiteManager,
	snapshots usecase.SnapshotManager,
	comparator usecase.Comparator,
	competitors usecase.CompetitorAnalyzer,
	pingers map[string]PingFunc,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		websites:    websites,
		snapshots:   snapshots,
		comparator:  comparator,
		competitors: competitors,
		pingers:     pingers,
		logger:      logger,
	}
}

// HandleHealthCheck pings every backing service.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := map[string]string{"status": "ok"}
	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		if err := h.pingers[name](ctx); err != nil {
			healthy = false
			health[name] = "unhealthy"
			h.logger.Error("Health check failed", zap.String("service", name), zap.Error(err))
			continue
		}
		health[name] = "healthy"
	}
	if !healthy {
		health["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	h.writeJSON(w, http.StatusOK, health)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID reads a UUID path parameter. Anything else cannot name a stored
// resource and answers 404.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name, notFound string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		h.writeJSONError(w, notFound, http.StatusNotFound)
		return "", false
	}
	return id, true
}

func (h *Handler) limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func owner(r *http.Request) string {
	return middleware.OwnerFromContext(r.Context())
}

// writeError maps use-case errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, usecase.ErrWebsiteNotFound),
		errors.Is(err, usecase.ErrSnapshotNotFound),
		errors.Is(err, usecase.ErrComparisonNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrWebsiteExists),
		errors.Is(err, usecase.ErrWebsiteInactive):
		status = http.StatusConflict
	case errors.Is(err, usecase.ErrSnapshotNotCompleted),
		errors.Is(err, usecase.ErrSnapshotWebsiteMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrInvalidURL),
		errors.Is(err, usecase.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrShuttingDown):
		status = http.StatusServiceUnavailable
	default:
		h.logger.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSONError(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
