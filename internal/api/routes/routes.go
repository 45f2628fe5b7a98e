package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hearsay-labs/hearsay/internal/api/handlers"
	"github.com/hearsay-labs/hearsay/internal/api/middleware"
)

type Deps struct {
	Memory *handlers.MemoryHandler
	WS     *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	auth := r.Group("/")
	auth.Use(middleware.Identity())

	auth.POST("/query", d.Memory.Query)
	auth.DELETE("/memory", d.Memory.DeleteAll)
	auth.GET("/segments/:session_id", d.Memory.ListSegments)

	// WebSocket capture session
	auth.GET("/ws", d.WS.Session)
}
