// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	flagsFeature "github.com/leapstack-labs/remarkql/internal/ui/features/flags"
	reviewFeature "github.com/leapstack-labs/remarkql/internal/ui/features/review"
	summaryFeature "github.com/leapstack-labs/remarkql/internal/ui/features/summary"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
	"github.com/leapstack-labs/remarkql/internal/ui/resources"
	"github.com/starfederation/datastar-go/datastar"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	orch *orchestrator.Orchestrator,
	flags flagsFeature.Recorder,
	reviews reviewFeature.Store,
	reviewAuth map[string]string,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	// Hot reload endpoint for dev mode
	if isDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler(logger))

	if err := summaryFeature.SetupRoutes(router, orch, sessionStore, notify, logger, isDev); err != nil {
		return err
	}

	if err := flagsFeature.SetupRoutes(router, flags, logger); err != nil {
		return err
	}

	if err := reviewFeature.SetupRoutes(router, reviews, reviewAuth, logger, isDev); err != nil {
		return err
	}

	return nil
}

// setupReload serves /reload, which reloads the page once on connect and
// again whenever /hotreload is hit.
func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
