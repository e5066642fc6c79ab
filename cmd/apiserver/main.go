// File: backend/cmd/apiserver/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/api"
	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/dnscheck"
	"github.com/belonio2793/backlinkoo/backend/internal/memorystore"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/registry"
	"github.com/belonio2793/backlinkoo/backend/internal/relevance"
	"github.com/belonio2793/backlinkoo/backend/internal/researcher"
	"github.com/belonio2793/backlinkoo/backend/internal/scoring"
	"github.com/belonio2793/backlinkoo/backend/internal/templates"
	"github.com/belonio2793/backlinkoo/backend/internal/verifier"
)

const (
	defaultPort    = "8080"
	configFilePath = "config.json"
)

func main() {
	appConfig, err := config.Load(configFilePath)
	if err != nil {
		log.Printf("Main: Notice during config.Load: %v. Application will proceed with available/defaulted config.", err)
	}
	if appConfig == nil {
		log.Fatalf("CRITICAL: Configuration could not be loaded by config.Load, and no defaults were returned. Exiting.")
	}

	// --- API Key Configuration ---
	loadedAPIKeyFromFile := appConfig.Server.APIKey
	apiKeyFromEnv := os.Getenv("BACKLINKOO_API_KEY")
	if apiKeyFromEnv != "" {
		appConfig.Server.APIKey = apiKeyFromEnv
		log.Printf("API Key: Using value from BACKLINKOO_API_KEY environment variable (length: %d).", len(appConfig.Server.APIKey))
	} else if loadedAPIKeyFromFile == "" {
		log.Printf("API Key: Empty in config.json and no ENV override. Using system default placeholder.")
		appConfig.Server.APIKey = config.DefaultSystemAPIKeyPlaceholder
	}
	if appConfig.Server.APIKey == config.DefaultSystemAPIKeyPlaceholder {
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
		log.Println("!!! WARNING: API Key is the default system placeholder. THIS IS INSECURE.       !!!")
		log.Println("!!! Please set a unique 'server.apiKey' in 'config.json' or use               !!!")
		log.Println("!!! the 'BACKLINKOO_API_KEY' environment variable for production deployments.   !!!")
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
	}

	// --- Port Configuration ---
	if appConfig.Server.Port == "" {
		appConfig.Server.Port = defaultPort
	}
	if portEnv := os.Getenv("BACKLINKOO_PORT"); portEnv != "" {
		appConfig.Server.Port = portEnv
		log.Printf("Port: Overridden by BACKLINKOO_PORT environment variable: %s", portEnv)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Wiring ---
	matcher := relevance.NewMatcher(appConfig.Niches)
	dnsChecker := dnscheck.New(appConfig.DNSCheck)
	prober := verifier.New(appConfig.Verifier, dnsChecker)
	scorer := scoring.NewHeuristicScorer()

	targetStore := memorystore.NewTargetStore()
	outreachStore := memorystore.NewOutreachStore()

	reg := registry.New(targetStore, prober, scorer, matcher, appConfig.Verifier, appConfig.Scheduler)
	scheduler := outreach.NewScheduler(
		outreachStore,
		researcher.New(appConfig.Verifier, matcher),
		outreach.LogSender{},
		outreach.NewClassifier(),
		templates.NewEngine(),
		appConfig.Scheduler,
		appConfig.Outreach,
	)
	campaignMgr := outreach.NewCampaignManager(outreachStore, scheduler, appConfig.Outreach)

	scheduler.StartResearchWorkers(rootCtx)

	// --- Background sweeps ---
	go runSweeps(rootCtx, appConfig.Scheduler, reg, scheduler)

	// --- HTTP server ---
	router := api.NewRouter(appConfig, reg, campaignMgr, scheduler)
	serverAddr := ":" + appConfig.Server.Port
	httpServer := &http.Server{
		Handler:      router, Addr: serverAddr,
		WriteTimeout: 30 * time.Second, ReadTimeout: 15 * time.Second, IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting Backlinkoo API server on http://localhost%s", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server ListenAndServe failed: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Main: Shutdown signal received, draining.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Main: HTTP server shutdown error: %v", err)
	}
	scheduler.Wait()
	log.Println("Main: Shutdown complete.")
}

// runSweeps drives the periodic work: the follow-up/research sweep and the
// slower target re-validation sweep.
func runSweeps(ctx context.Context, cfg config.SchedulerConfig, reg *registry.Registry, scheduler *outreach.Scheduler) {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Minute
	}
	revalidationInterval := cfg.RevalidationInterval
	if revalidationInterval <= 0 {
		revalidationInterval = 6 * time.Hour
	}

	sweepTicker := time.NewTicker(sweepInterval)
	revalidationTicker := time.NewTicker(revalidationInterval)
	defer sweepTicker.Stop()
	defer revalidationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			scheduler.SweepResearch()
			if sent, err := scheduler.ProcessDueFollowUps(ctx); err != nil {
				log.Printf("Main: Follow-up sweep error: %v", err)
			} else if sent > 0 {
				log.Printf("Main: Follow-up sweep sent %d emails.", sent)
			}
		case <-revalidationTicker.C:
			outcome, err := reg.Validate(ctx, nil)
			if err != nil {
				log.Printf("Main: Re-validation sweep error: %v", err)
				continue
			}
			if len(outcome.Valid)+len(outcome.Invalid) > 0 {
				log.Printf("Main: Re-validation refreshed %d targets, sidelined %d.", len(outcome.Valid), len(outcome.Invalid))
			}
		}
	}
}
