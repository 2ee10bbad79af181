package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, mentorMiddleware gin.HandlerFunc) {
	// Student-facing availability browsing.
	slots := g.Group("/slots")
	slots.Use(authMiddleware)
	{
		slots.GET("", h.ListAvailable)
		slots.GET("/:id", h.Get)
	}

	// Mentor-only schedule management.
	mine := g.Group("/mentor/slots")
	mine.Use(authMiddleware, mentorMiddleware)
	{
		mine.GET("", h.ListMine)
		mine.POST("", h.Create)
		mine.PUT("/:id", h.Update)
		mine.DELETE("/:id", h.Delete)
	}
}
