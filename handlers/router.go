package handlers

import (
	"github.com/crowdflux/DeckLingo-AI/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of an upload gin keeps in memory before
// spilling to its own temp files.
const multipartMemory = 32 << 20

// NewRouter wires the API, health check and optional frontend.
func NewRouter(h *Handler, sessions *middleware.SessionManager, logger zerolog.Logger, publicDir string) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = multipartMemory

	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(),
		middleware.CORS(),
		middleware.SessionMiddleware(sessions),
	)

	api := r.Group("/api")
	{
		api.POST("/translate", h.Translate)
		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/:id", h.GetJob)
	}
	r.GET("/healthz", h.Health)

	mountStatic(r, publicDir)
	return r
}
