// File: backend/internal/api/router.go
package api

import (
	"net/http"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/registry"
	"github.com/gorilla/mux"
)

func NewRouter(cfg *config.AppConfig, reg *registry.Registry, campaignMgr *outreach.CampaignManager, scheduler *outreach.Scheduler) *mux.Router {
	router := mux.NewRouter()
	apiHandler := NewAPIHandler(cfg, reg, campaignMgr, scheduler)

	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/ping", apiHandler.PingHandler).Methods(http.MethodGet, http.MethodOptions)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(APIKeyAuthMiddleware(cfg.Server.APIKey))

	// Target registry
	apiV1.HandleFunc("/targets", apiHandler.AddTargetHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/targets/search", apiHandler.SearchTargetsHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/targets/rank", apiHandler.RankTargetsHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/targets/validate", apiHandler.ValidateTargetsHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/targets/analytics", apiHandler.TargetAnalyticsHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/targets/{targetId}", apiHandler.GetTargetHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/targets/{targetId}/submissions", apiHandler.RecordSubmissionHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/submissions/{submissionId}/resolve", apiHandler.ResolveSubmissionHandler).Methods(http.MethodPost, http.MethodOptions)

	// Campaigns
	apiV1.HandleFunc("/campaigns", apiHandler.CreateCampaignHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/campaigns", apiHandler.ListCampaignsHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/campaigns/{campaignId}", apiHandler.GetCampaignHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/campaigns/{campaignId}/status", apiHandler.UpdateCampaignStatusHandler).Methods(http.MethodPut, http.MethodOptions)
	apiV1.HandleFunc("/campaigns/{campaignId}/performance", apiHandler.CampaignPerformanceHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/campaigns/{campaignId}/prospects", apiHandler.AddProspectsHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/campaigns/{campaignId}/prospects", apiHandler.ListProspectsHandler).Methods(http.MethodGet, http.MethodOptions)

	// Prospects
	apiV1.HandleFunc("/prospects/{prospectId}/send", apiHandler.SendInitialHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/prospects/{prospectId}/reply", apiHandler.RecordReplyHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/prospects/{prospectId}/link-acquired", apiHandler.RecordLinkAcquiredHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/prospects/{prospectId}/{action}", apiHandler.ProspectActionHandler).Methods(http.MethodPost, http.MethodOptions)

	// Outreach sweeps and channel events
	apiV1.HandleFunc("/outreach/process-follow-ups", apiHandler.ProcessFollowUpsHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/outreach/events", apiHandler.EmailEventHandler).Methods(http.MethodPost, http.MethodOptions)

	return router
}
