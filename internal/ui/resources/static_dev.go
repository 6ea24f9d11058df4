//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// staticDir locates static/ next to this file so edits show up without a
// rebuild, wherever the binary is started from.
func staticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves static files from the source tree.
func Handler(logger *slog.Logger) http.Handler {
	dir := staticDir()
	logger.Info("static assets served from filesystem", slog.String("path", dir))
	return http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(dir))))
}
