package api

import (
	"net/http"
	"time"

	"github.com/johsantss21/Thays-admin/pkg/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// NewServer builds the HTTP server cmd/api runs. The write timeout leaves
// room for a full webhook batch.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.Webhooks.AsyncTaskTimeout + readTimeout,
		IdleTimeout:       idleTimeout,
	}
}
