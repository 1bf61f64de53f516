package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/user/seo-snapshot-service/internal/delivery/http/request"
	"github.com/user/seo-snapshot-service/internal/delivery/http/response"
)

func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	var req request.CompareRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.BaselineSnapshotID == "" || req.CurrentSnapshotID == "" {
		h.writeJSONError(w, "baseline_snapshot_id and current_snapshot_id are required", http.StatusBadRequest)
		return
	}
	for _, id := range []string{req.BaselineSnapshotID, req.CurrentSnapshotID} {
		if _, err := uuid.Parse(id); err != nil {
			h.writeJSONError(w, snapshotNotFound, http.StatusNotFound)
			return
		}
	}

	cmp, err := h.comparator.CompareSnapshots(r.Context(), owner(r), websiteID, req.BaselineSnapshotID, req.CurrentSnapshotID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, response.NewComparison(cmp))
}

func (h *Handler) HandleListComparisons(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	cmps, err := h.comparator.ListComparisons(r.Context(), owner(r), websiteID, h.limit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewComparisons(cmps))
}

func (h *Handler) HandleComparisonSummary(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	summary, err := h.comparator.Summary(r.Context(), owner(r), websiteID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewComparisonSummary(summary))
}

func (h *Handler) HandleGetComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "comparisonID", "Comparison not found")
	if !ok {
		return
	}
	cmp, err := h.comparator.GetComparison(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewComparison(cmp))
}
