package handler

import (
	"net/http"

	"github.com/user/seo-snapshot-service/internal/delivery/http/request"
	"github.com/user/seo-snapshot-service/internal/delivery/http/response"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/usecase"
)

const websiteNotFound = "Website not found"

// HandleScan tracks the URL's website if needed and queues a snapshot.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req request.ScanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		h.writeJSONError(w, "url is required", http.StatusBadRequest)
		return
	}

	website, handle, err := h.websites.ScanURL(r.Context(), owner(r), usecase.WebsiteRequest{
		URL:              req.URL,
		Name:             req.Name,
		Role:             entity.WebsiteRole(req.Role),
		CrawlCadenceDays: req.CrawlCadenceDays,
		MaxPages:         req.MaxPages,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dto := response.NewWebsite(website)
	h.writeJSON(w, http.StatusAccepted, response.ScanResponse{
		Status:   "success",
		Message:  "Snapshot queued for scanning",
		Website:  &dto,
		Snapshot: *handle,
	})
}

func (h *Handler) HandleCreateWebsite(w http.ResponseWriter, r *http.Request) {
	var req request.WebsiteRequest
	if !h.decode(w, r, &req) {
		return
	}
	website, err := h.websites.AddWebsite(r.Context(), owner(r), usecase.WebsiteRequest{
		URL:              req.URL,
		Name:             req.Name,
		Role:             entity.WebsiteRole(req.Role),
		CrawlCadenceDays: req.CrawlCadenceDays,
		MaxPages:         req.MaxPages,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, response.NewWebsite(website))
}

func (h *Handler) HandleListWebsites(w http.ResponseWriter, r *http.Request) {
	role := entity.WebsiteRole(r.URL.Query().Get("role"))
	websites, err := h.websites.ListWebsites(r.Context(), owner(r), role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewWebsites(websites))
}

func (h *Handler) HandleGetWebsite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	website, err := h.websites.GetWebsite(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewWebsite(website))
}

func (h *Handler) HandleDeactivateWebsite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	if err := h.websites.DeactivateWebsite(r.Context(), owner(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCompetitiveAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "websiteID", websiteNotFound)
	if !ok {
		return
	}
	analysis, err := h.competitors.Analyze(r.Context(), owner(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}
