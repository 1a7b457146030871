// Package router wires the retrieval service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/ragd/handler"
)

// Register registers the retrieval service routes.
func Register(engine *gin.Engine, h *handler.Handler) {
	logger.Info("Registering routes...")

	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		rag := v1.Group("/rag")
		{
			rag.POST("/index", h.Index)
			rag.POST("/retrieve", h.Retrieve)
			rag.POST("/query", h.Query)
			rag.DELETE("/documents/:owner/:file_id", h.DeleteDocument)
			rag.GET("/stats/:owner", h.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}
