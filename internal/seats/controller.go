package seats

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boleto/internal/shared/utils/response"
)

type Controller interface {
	GetSeatMatrix(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) GetSeatMatrix(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	matrix, err := ctrl.service.GetSeatMatrix(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seat matrix retrieved successfully", matrix, nil)
}
