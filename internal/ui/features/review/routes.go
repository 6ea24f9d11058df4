// Package review lets a reviewer grade logged summaries against the prompt
// that produced them.
package review

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// realm is shown in the browser's login prompt.
const realm = "remarkql review"

// SetupRoutes configures routes for the review feature. A non-empty creds
// map puts both routes behind HTTP basic auth.
func SetupRoutes(router chi.Router, store Store, creds map[string]string, logger *slog.Logger, isDev bool) error {
	handlers := NewHandlers(store, logger, isDev)

	router.Group(func(r chi.Router) {
		if len(creds) > 0 {
			r.Use(middleware.BasicAuth(realm, creds))
		}
		r.Get("/review", handlers.ReviewPage)
		r.Post("/api/judgement", handlers.Judge)
	})

	return nil
}
