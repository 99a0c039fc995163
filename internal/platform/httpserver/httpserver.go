// Package httpserver builds the net/http server for both binaries.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"voicedesk/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New applies the configured timeouts and routes the server's own error log
// through logger at warn level.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
