// File: backend/internal/api/campaign_handlers.go
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/gorilla/mux"
)

// CreateCampaignHandler persists a new outreach campaign.
func (h *APIHandler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var spec outreach.CampaignSpec
	if err := decodeJSONBody(r, &spec); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	campaign, err := h.CampaignMgr.CreateCampaign(spec)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, campaign)
}

// ListCampaignsHandler returns campaigns, optionally filtered by ?status=.
func (h *APIHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	status := outreach.CampaignStatus(r.URL.Query().Get("status"))
	campaigns, err := h.CampaignMgr.ListCampaigns(status)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns, "count": len(campaigns)})
}

// GetCampaignHandler returns one campaign.
func (h *APIHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.CampaignMgr.GetCampaign(mux.Vars(r)["campaignId"])
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "campaign not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, campaign)
}

type campaignStatusRequest struct {
	Status outreach.CampaignStatus `json:"status"`
}

// UpdateCampaignStatusHandler moves a campaign between lifecycle states.
func (h *APIHandler) UpdateCampaignStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req campaignStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	campaignID := mux.Vars(r)["campaignId"]
	if err := h.CampaignMgr.SetCampaignStatus(campaignID, req.Status); err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "campaign not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"id": campaignID, "status": string(req.Status)})
}

// CampaignPerformanceHandler returns the campaign analytics read model.
func (h *APIHandler) CampaignPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	perf, err := h.CampaignMgr.GetCampaignPerformance(mux.Vars(r)["campaignId"])
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "campaign not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, perf)
}

type addProspectsRequest struct {
	Prospects []outreach.ProspectIntake `json:"prospects"`
}

// AddProspectsHandler adds prospects to a campaign and queues their research.
func (h *APIHandler) AddProspectsHandler(w http.ResponseWriter, r *http.Request) {
	var req addProspectsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Prospects) == 0 {
		respondWithError(w, http.StatusBadRequest, "prospects list is empty")
		return
	}

	created, err := h.CampaignMgr.AddProspects(mux.Vars(r)["campaignId"], req.Prospects)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "campaign not found")
			return
		}
		if errors.Is(err, outreach.ErrMissingContactEmail) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("API Error: AddProspects failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to add prospects")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"prospects": created, "count": len(created)})
}

// ListProspectsHandler returns a campaign's prospects.
func (h *APIHandler) ListProspectsHandler(w http.ResponseWriter, r *http.Request) {
	prospects, err := h.CampaignMgr.ListProspects(mux.Vars(r)["campaignId"])
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "campaign not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"prospects": prospects, "count": len(prospects)})
}

// SendInitialHandler triggers the initial outreach email for a prospect.
func (h *APIHandler) SendInitialHandler(w http.ResponseWriter, r *http.Request) {
	prospectID := mux.Vars(r)["prospectId"]
	email, err := h.Scheduler.SendInitialOutreach(r.Context(), prospectID)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "prospect not found")
			return
		}
		log.Printf("API Error: Initial send failed for prospect %s: %v", prospectID, err)
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, email)
}

type recordReplyRequest struct {
	ReplyText string `json:"reply_text"`
}

// RecordReplyHandler classifies an inbound reply for a prospect.
func (h *APIHandler) RecordReplyHandler(w http.ResponseWriter, r *http.Request) {
	var req recordReplyRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	verdict, err := h.Scheduler.RecordReply(mux.Vars(r)["prospectId"], req.ReplyText)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "prospect not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, verdict)
}

// ProspectActionHandler applies an explicit lifecycle action to a prospect:
// pause, resume, blacklist, complete or reactivate.
func (h *APIHandler) ProspectActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	prospectID := vars["prospectId"]
	action := vars["action"]

	var err error
	switch action {
	case "pause":
		err = h.Scheduler.PauseProspect(prospectID)
	case "resume":
		err = h.Scheduler.ResumeProspect(prospectID)
	case "blacklist":
		err = h.Scheduler.BlacklistProspect(prospectID)
	case "complete":
		err = h.Scheduler.CompleteProspect(prospectID)
	case "reactivate":
		err = h.Scheduler.ReactivateBlacklisted(prospectID)
	default:
		respondWithError(w, http.StatusBadRequest, "unknown action '"+action+"'")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, outreach.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "prospect not found")
		case errors.Is(err, outreach.ErrBlacklistRecontactDisabled):
			respondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, outreach.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"id": prospectID, "action": action})
}

type linkAcquiredRequest struct {
	LinkURL string `json:"link_url"`
}

// RecordLinkAcquiredHandler marks a prospect's link as won.
func (h *APIHandler) RecordLinkAcquiredHandler(w http.ResponseWriter, r *http.Request) {
	var req linkAcquiredRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	prospectID := mux.Vars(r)["prospectId"]
	if err := h.CampaignMgr.RecordLinkAcquired(prospectID, req.LinkURL); err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "prospect not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"id": prospectID, "link_url": req.LinkURL})
}

// ProcessFollowUpsHandler runs one follow-up sweep and reports the count.
func (h *APIHandler) ProcessFollowUpsHandler(w http.ResponseWriter, r *http.Request) {
	sent, err := h.Scheduler.ProcessDueFollowUps(r.Context())
	if err != nil {
		log.Printf("API Error: Follow-up sweep failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"processed": sent})
}

// EmailEventHandler ingests a channel collaborator delivery/engagement event.
func (h *APIHandler) EmailEventHandler(w http.ResponseWriter, r *http.Request) {
	var event outreach.EmailEvent
	if err := decodeJSONBody(r, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if event.ProviderMessageID == "" {
		respondWithError(w, http.StatusBadRequest, "provider_message_id is required")
		return
	}
	if err := h.Scheduler.HandleEmailEvent(event); err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "no email matches that provider message id")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
