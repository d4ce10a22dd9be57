package sales

import (
	"boleto/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSaleRoutes(router *gin.RouterGroup, controller Controller) {
	// Confirmation hangs off the session resource
	sessions := router.Group("/sessions")
	sessions.Use(middleware.JWTAuth())
	{
		sessions.POST("/:sessionId/confirm", controller.ConfirmPurchase)
		sessions.GET("/:sessionId/sale", controller.GetSessionSale)
	}

	sales := router.Group("/sales")
	sales.Use(middleware.JWTAuth())
	{
		sales.GET("", controller.ListMySales)
	}
}
