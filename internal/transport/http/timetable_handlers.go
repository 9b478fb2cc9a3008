package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/proto"
	"github.com/vovakirdan/timetable-server/internal/service/timetables"
)

// TimetableHandlers provides HTTP handlers for timetable endpoints.
type TimetableHandlers struct {
	service *timetables.Service
	log     *zerolog.Logger
}

// NewTimetableHandlers creates a new timetable handlers instance.
func NewTimetableHandlers(service *timetables.Service, logger *zerolog.Logger) *TimetableHandlers {
	return &TimetableHandlers{
		service: service,
		log:     logger,
	}
}

// TimetableRequest represents the create and update timetable body.
type TimetableRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=128"`
	Description string `json:"description" binding:"max=1024"`
}

// CreateTimetable handles timetable creation.
// POST /api/v1/timetables
func (h *TimetableHandlers) CreateTimetable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req TimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create timetable request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	tt, err := h.service.CreateTimetable(c.Request.Context(), user.ID, req.Title, req.Description)
	if err != nil {
		respondError(c, h.log, err, "failed to create timetable")
		return
	}

	h.log.Info().Str("timetable_id", tt.ID).Str("user_id", user.ID).Msg("timetable created")
	c.JSON(http.StatusCreated, proto.TimetableFromStore(tt))
}

// ListMyTimetables lists the timetables the user created.
// GET /api/v1/timetables/me
func (h *TimetableHandlers) ListMyTimetables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	tts, err := h.service.ListTimetablesByOwner(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err, "failed to list timetables")
		return
	}
	c.JSON(http.StatusOK, proto.TimetablesFromStore(tts))
}

// GetTimetable returns one timetable.
// GET /api/v1/timetables/:id
func (h *TimetableHandlers) GetTimetable(c *gin.Context) {
	tt, err := h.service.GetTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get timetable")
		return
	}
	c.JSON(http.StatusOK, proto.TimetableFromStore(tt))
}

// UpdateTimetable changes title and description. Owner only.
// PATCH /api/v1/timetables/:id
func (h *TimetableHandlers) UpdateTimetable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req TimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update timetable request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	tt, err := h.service.UpdateTimetable(c.Request.Context(), user.ID, c.Param("id"), req.Title, req.Description)
	if err != nil {
		respondError(c, h.log, err, "failed to update timetable")
		return
	}
	c.JSON(http.StatusAccepted, proto.TimetableFromStore(tt))
}

// ListBlocks lists every block on the timetable.
// GET /api/v1/timetables/:id/scheduleblocks
func (h *TimetableHandlers) ListBlocks(c *gin.Context) {
	blocks, err := h.service.ListBlocks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to list schedule blocks")
		return
	}
	c.JSON(http.StatusOK, proto.BlocksFromStore(blocks))
}

// ListMyBlocks lists the user's blocks on the timetable.
// GET /api/v1/timetables/:id/scheduleblocks/me
func (h *TimetableHandlers) ListMyBlocks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	blocks, err := h.service.ListUserBlocks(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, h.log, err, "failed to list schedule blocks")
		return
	}
	c.JSON(http.StatusOK, proto.BlocksFromStore(blocks))
}

// DeleteMyBlocks removes all of the user's blocks on the timetable.
// DELETE /api/v1/timetables/:id/scheduleblocks/me
func (h *TimetableHandlers) DeleteMyBlocks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	n, err := h.service.DeleteUserBlocks(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to delete schedule blocks")
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

// DeleteMyBlocksByDay removes the user's blocks on one day of the timetable.
// DELETE /api/v1/timetables/:id/scheduleblocks/me/days/:day
func (h *TimetableHandlers) DeleteMyBlocksByDay(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "day must be an integer"})
		return
	}

	n, err := h.service.DeleteUserBlocksByDay(c.Request.Context(), user.ID, c.Param("id"), day)
	if err != nil {
		respondError(c, h.log, err, "failed to delete schedule blocks")
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}
