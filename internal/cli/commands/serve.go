package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/leapstack-labs/remarkql/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the remarkql web UI",
		Long: `Start a local web server with the interactive summary page.

The page provides:
- Widget controls for location, activity, program, month, summary type and points
- A summary that streams in as the model writes it
- The numbered remarks the summary is based on
- A button to flag an inaccurate summary for review
- A /review page for grading logged summaries against their prompts,
  behind basic auth when ui.review_user and ui.review_password are set

With --watch, edits to the prompt templates in prompts_dir are picked up
without a restart.`,
		Example: `  # Start UI on the configured port
  remarkql serve

  # Start on a custom port without opening a browser
  remarkql serve --port 3000 --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: ui.port)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload prompts when they change")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Mount the page reload endpoints")
	_ = cmd.Flags().MarkHidden("dev")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	// CLI flags override config file
	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser
	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	secret, err := sessionSecret(cfg.UI.SessionSecret)
	if err != nil {
		return err
	}

	stack, err := NewStack(cmd.Context(), cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	server := ui.NewServer(ui.Config{
		Orchestrator:  stack.Orchestrator,
		Prompts:       stack.Summarizer,
		Flags:         stack.Audit,
		Reviews:       stack.Audit,
		ReviewAuth:    cfg.UI.ReviewAuth(),
		Port:          port,
		Watch:         watch && cfg.PromptsDir != "",
		Dev:           opts.Dev,
		PromptsDir:    cfg.PromptsDir,
		SessionSecret: secret,
		Logger:        cmdCtx.Logger,
		OnListen: func(url string) {
			r.Println(r.Styles.Success.Render("remarkql UI running on " + url))
			r.Println(r.Styles.Muted.Render("Press Ctrl+C to stop"))
			if autoOpen {
				go openBrowser(url)
			}
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// sessionSecret returns the configured secret, or a random one. A random
// secret forgets saved selections on restart.
func sessionSecret(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("failed to generate session secret")
	}
	return hex.EncodeToString(key), nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	if err := cmd.Start(); err != nil {
		fmt.Printf("Open %s in your browser\n", url)
	}
}
