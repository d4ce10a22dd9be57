package seats

import (
	"boleto/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(router *gin.RouterGroup, controller Controller) {
	seatRoutes := router.Group("/events/:eventId/seats")
	seatRoutes.Use(middleware.JWTAuth())
	{
		seatRoutes.GET("", controller.GetSeatMatrix)
	}
}
