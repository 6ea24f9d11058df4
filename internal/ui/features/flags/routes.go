// Package flags lets an analyst flag the summary on screen for review.
package flags

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the flags feature.
func SetupRoutes(router chi.Router, recorder Recorder, logger *slog.Logger) error {
	handlers := NewHandlers(recorder, logger)

	router.Post("/api/flag", handlers.Flag)

	return nil
}
