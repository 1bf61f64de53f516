package handler

import (
	"net/http"

	"github.com/user/seo-snapshot-service/internal/delivery/http/response"
)

const snapshotNotFound = "Snapshot not found"

func (h *Handler) HandleStartSnapshot(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	handle, err := h.snapshots.StartSnapshot(r.Context(), owner(r), websiteID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, response.ScanResponse{
		Status:   "success",
		Message:  "Snapshot queued for scanning",
		Snapshot: *handle,
	})
}

func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	snapshots, err := h.snapshots.ListSnapshots(r.Context(), owner(r), websiteID, h.limit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewSnapshots(snapshots))
}

func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "snapshotID", snapshotNotFound)
	if !ok {
		return
	}
	sn, err := h.snapshots.GetSnapshot(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewSnapshot(sn))
}

func (h *Handler) HandleGetSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "snapshotID", snapshotNotFound)
	if !ok {
		return
	}
	status, err := h.snapshots.GetSnapshotStatus(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleListPages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "snapshotID", snapshotNotFound)
	if !ok {
		return
	}
	pages, err := h.snapshots.ListPages(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewPages(pages))
}

func (h *Handler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "snapshotID", snapshotNotFound)
	if !ok {
		return
	}
	failures, err := h.snapshots.ListFailures(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, failures)
}
