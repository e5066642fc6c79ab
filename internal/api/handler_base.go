// File: backend/internal/api/handler_base.go
package api

import (
	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/registry"
)

// APIHandler holds shared dependencies for API handlers.
type APIHandler struct {
	Config      *config.AppConfig
	Registry    *registry.Registry
	CampaignMgr *outreach.CampaignManager
	Scheduler   *outreach.Scheduler
}

// NewAPIHandler creates a new APIHandler with dependencies.
func NewAPIHandler(cfg *config.AppConfig, reg *registry.Registry, campaignMgr *outreach.CampaignManager, scheduler *outreach.Scheduler) *APIHandler {
	return &APIHandler{
		Config:      cfg,
		Registry:    reg,
		CampaignMgr: campaignMgr,
		Scheduler:   scheduler,
	}
}
