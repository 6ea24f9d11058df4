// Package summary provides the summarization page: widget controls, the
// streamed summary and the remarks it is based on.
package summary

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
)

// SetupRoutes configures routes for the summary feature.
func SetupRoutes(
	router chi.Router,
	orch *orchestrator.Orchestrator,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	handlers := NewHandlers(orch, sessionStore, notify, logger, isDev)

	router.Get("/", handlers.SummaryPage)
	router.Get("/updates", handlers.Updates)
	router.Post("/api/summarize", handlers.Summarize)

	return nil
}
