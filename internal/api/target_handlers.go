// File: backend/internal/api/target_handlers.go
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/belonio2793/backlinkoo/backend/internal/registry"
	"github.com/belonio2793/backlinkoo/backend/internal/targets"
	"github.com/gorilla/mux"
)

type addTargetRequest struct {
	URL    string   `json:"url"`
	Topics []string `json:"topics,omitempty"`
}

// AddTargetHandler runs verification-gated intake of one URL.
func (h *APIHandler) AddTargetHandler(w http.ResponseWriter, r *http.Request) {
	var req addTargetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}

	target, err := h.Registry.AddTarget(r.Context(), req.URL, req.Topics)
	if err != nil {
		if errors.Is(err, registry.ErrIneligibleTarget) {
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("API Error: AddTarget failed for '%s': %v", req.URL, err)
		respondWithError(w, http.StatusInternalServerError, "failed to add target")
		return
	}
	respondWithJSON(w, http.StatusCreated, target)
}

// GetTargetHandler returns one target by id.
func (h *APIHandler) GetTargetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["targetId"]
	target, err := h.Registry.GetTarget(id)
	if err != nil {
		if errors.Is(err, targets.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "target not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, target)
}

// SearchTargetsHandler filters verified targets by criteria.
func (h *APIHandler) SearchTargetsHandler(w http.ResponseWriter, r *http.Request) {
	var criteria targets.SearchCriteria
	if err := decodeJSONBody(r, &criteria); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	matched, err := h.Registry.Search(criteria)
	if err != nil {
		log.Printf("API Error: Target search failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"targets": matched, "count": len(matched)})
}

type rankTargetsRequest struct {
	TargetURL string   `json:"target_url"`
	Keywords  []string `json:"keywords"`
	Limit     int      `json:"limit,omitempty"`
}

// RankTargetsHandler returns campaign-ranked targets for a keyword profile.
func (h *APIHandler) RankTargetsHandler(w http.ResponseWriter, r *http.Request) {
	var req rankTargetsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranked, err := h.Registry.RankForCampaign(req.TargetURL, req.Keywords, req.Limit)
	if err != nil {
		log.Printf("API Error: Target ranking failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "ranking failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"targets": ranked, "count": len(ranked)})
}

type validateTargetsRequest struct {
	TargetIDs []string `json:"target_ids,omitempty"`
}

// ValidateTargetsHandler re-checks liveness of a batch of targets. An empty
// id list validates every stale verified target.
func (h *APIHandler) ValidateTargetsHandler(w http.ResponseWriter, r *http.Request) {
	var req validateTargetsRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	outcome, err := h.Registry.Validate(r.Context(), req.TargetIDs)
	if err != nil {
		log.Printf("API Error: Target validation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// TargetAnalyticsHandler summarizes the registry.
func (h *APIHandler) TargetAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.Registry.Analytics()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, analytics)
}

type recordSubmissionRequest struct {
	CampaignID      string                    `json:"campaign_id,omitempty"`
	Payload         targets.SubmissionPayload `json:"payload"`
	AutomationLevel targets.AutomationLevel   `json:"automation_level,omitempty"`
}

// RecordSubmissionHandler records a content submission against a target.
func (h *APIHandler) RecordSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["targetId"]
	var req recordSubmissionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	level := req.AutomationLevel
	if level == "" {
		level = targets.AutomationManual
	}
	attempt, err := h.Registry.RecordSubmission(targetID, req.CampaignID, req.Payload, level)
	if err != nil {
		if errors.Is(err, targets.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "target not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, attempt)
}

type resolveSubmissionRequest struct {
	Status          targets.SubmissionStatus `json:"status"`
	PublishedURL    string                   `json:"published_url,omitempty"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
}

// ResolveSubmissionHandler settles a submission into a terminal status.
func (h *APIHandler) ResolveSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	submissionID := mux.Vars(r)["submissionId"]
	var req resolveSubmissionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	attempt, err := h.Registry.ResolveSubmission(submissionID, req.Status, req.PublishedURL, req.RejectionReason)
	if err != nil {
		if errors.Is(err, targets.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "submission not found")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, attempt)
}
