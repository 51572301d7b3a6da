package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairroom-server/internal/config"
	"github.com/vovakirdan/pairroom-server/internal/core"
)

// NewServer builds an HTTP server with the health, stats and WebSocket routes.
// The WebSocket route is served outside gin so the upgrade can hijack the
// raw connection.
func NewServer(broker *core.Broker, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(broker, logger)
	router.GET("/health", api.Health)
	router.GET("/api/stats", api.Stats)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(broker, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
