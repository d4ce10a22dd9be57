package sessions

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boleto/internal/shared/utils/response"
)

type Controller interface {
	StartSession(c *gin.Context)
	GetSession(c *gin.Context)
	CancelSession(c *gin.Context)
	SelectSeats(c *gin.Context)
	AssignNames(c *gin.Context)
	Ping(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// ownerID pulls the authenticated user out of the request context.
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return uuid.Nil, false
	}

	owner, err := uuid.Parse(userID.(string))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Invalid user identity", nil, nil)
		return uuid.Nil, false
	}

	return owner, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (ctrl *controller) StartSession(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	session, err := ctrl.service.Start(c.Request.Context(), owner, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Session started successfully", session, nil)
}

func (ctrl *controller) GetSession(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := ctrl.service.Get(c.Request.Context(), id, owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Session retrieved successfully", session, nil)
}

func (ctrl *controller) CancelSession(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := ctrl.service.Cancel(c.Request.Context(), id, owner); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *controller) SelectSeats(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req SelectSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	session, err := ctrl.service.SelectSeats(c.Request.Context(), id, owner, req.Seats)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seats locked successfully", session, nil)
}

func (ctrl *controller) AssignNames(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req AssignNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	session, err := ctrl.service.AssignNames(c.Request.Context(), id, owner, req.Names)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Attendee names assigned successfully", session, nil)
}

func (ctrl *controller) Ping(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := ctrl.service.Ping(c.Request.Context(), id, owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Session extended successfully", session, nil)
}
