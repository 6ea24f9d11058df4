// Package ui provides the remarkql web UI: the summary page with its flag
// action, the review page, and live prompt reloading.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/ui/features/flags"
	"github.com/leapstack-labs/remarkql/internal/ui/features/review"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
	"github.com/leapstack-labs/remarkql/internal/ui/router"
	"golang.org/x/sync/errgroup"
)

const reloadDebounce = 100 * time.Millisecond

// PromptSetter swaps the prompts used for new requests;
// *summarize.Summarizer implements it.
type PromptSetter interface {
	SetPrompts(p *summarize.Prompts)
}

// Server is the main UI server.
type Server struct {
	orch         *orchestrator.Orchestrator
	prompts      PromptSetter
	flags        flags.Recorder
	reviews      review.Store
	reviewAuth   map[string]string
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	dev          bool
	promptsDir   string
	onListen     func(url string)
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	// Prompts receives reloaded prompts when Watch is set.
	Prompts PromptSetter
	Flags   flags.Recorder
	Reviews review.Store
	// ReviewAuth maps user to password for the review page. Empty leaves
	// it open.
	ReviewAuth map[string]string
	// Port 0 picks a free port.
	Port          int
	Watch         bool
	Dev           bool
	PromptsDir    string
	SessionSecret string
	// OnListen is called with the base URL once the listener is open.
	OnListen func(url string)
	Logger   *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		orch:         cfg.Orchestrator,
		prompts:      cfg.Prompts,
		flags:        cfg.Flags,
		reviews:      cfg.Reviews,
		reviewAuth:   cfg.ReviewAuth,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		promptsDir:   cfg.PromptsDir,
		onListen:     cfg.OnListen,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the router with middleware and every feature route.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.orch, s.flags, s.reviews, s.reviewAuth, s.sessionStore, s.notifier, s.logger, s.IsDev()); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	url := fmt.Sprintf("http://localhost:%d", ln.Addr().(*net.TCPAddr).Port)
	s.logger.Info("starting UI server", slog.String("addr", url))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.promptsDir != "" && s.prompts != nil {
		eg.Go(func() error {
			return s.watchPrompts(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	if s.onListen != nil {
		s.onListen(url)
	}

	return eg.Wait()
}

// IsDev reports whether the dev reload endpoints are mounted.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchPrompts reloads the prompts whenever a template in the prompts
// directory changes. Bursts of events are collapsed into one reload.
func (s *Server) watchPrompts(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.promptsDir); err != nil {
		// Don't fail - serve without reloading
		s.logger.Error("failed to watch prompts directory",
			slog.String("dir", s.promptsDir), slog.String("error", err.Error()))
		<-ctx.Done()
		return nil
	}
	s.logger.Debug("watching prompts", slog.String("dir", s.promptsDir))

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		mu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".tmpl" {
				continue
			}

			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				s.logger.Debug("prompt changed", slog.String("file", event.Name))
				s.reloadPrompts()
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// reloadPrompts swaps in the prompts on disk. A broken template keeps the
// previous prompts and is reported on every open page.
func (s *Server) reloadPrompts() {
	p, err := summarize.LoadPrompts(s.promptsDir)
	if err != nil {
		s.logger.Error("prompt reload failed", slog.String("error", err.Error()))
		s.notifier.Publish(notifier.LevelError, "Prompt reload failed, keeping the previous prompts: "+err.Error())
		return
	}
	s.prompts.SetPrompts(p)
	s.logger.Info("prompts reloaded", slog.String("fingerprint", p.Fingerprint()))
	s.notifier.Publish(notifier.LevelInfo, "Prompts reloaded")
}
