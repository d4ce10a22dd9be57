package sales

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boleto/internal/shared/utils/response"
)

type Controller interface {
	ConfirmPurchase(c *gin.Context)
	ListMySales(c *gin.Context)
	GetSessionSale(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func buyerID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return uuid.Nil, false
	}

	buyer, err := uuid.Parse(userID.(string))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Invalid user identity", nil, nil)
		return uuid.Nil, false
	}

	return buyer, true
}

func (ctrl *controller) ConfirmPurchase(c *gin.Context) {
	buyer, ok := buyerID(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return
	}

	sale, err := ctrl.service.Confirm(c.Request.Context(), sessionID, buyer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Purchase confirmed successfully", sale, nil)
}

func (ctrl *controller) ListMySales(c *gin.Context) {
	buyer, ok := buyerID(c)
	if !ok {
		return
	}

	salesList, err := ctrl.service.ListMySales(c.Request.Context(), buyer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sales retrieved successfully", salesList, nil)
}

func (ctrl *controller) GetSessionSale(c *gin.Context) {
	buyer, ok := buyerID(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return
	}

	sale, err := ctrl.service.GetBySession(c.Request.Context(), sessionID, buyer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sale retrieved successfully", sale, nil)
}
