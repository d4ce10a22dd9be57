package sessions

import (
	"boleto/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSessionRoutes(router *gin.RouterGroup, controller Controller) {
	sessions := router.Group("/sessions")
	sessions.Use(middleware.JWTAuth())
	{
		sessions.POST("", controller.StartSession)
		sessions.GET("/:sessionId", controller.GetSession)
		sessions.DELETE("/:sessionId", controller.CancelSession)
		sessions.POST("/:sessionId/seats", controller.SelectSeats)
		sessions.POST("/:sessionId/names", controller.AssignNames)
		sessions.POST("/:sessionId/ping", controller.Ping)
	}
}
