package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/proto"
	"github.com/vovakirdan/timetable-server/internal/service/timetables"
)

// ScheduleBlockHandlers provides HTTP handlers for schedule block endpoints.
type ScheduleBlockHandlers struct {
	service *timetables.Service
	log     *zerolog.Logger
}

// NewScheduleBlockHandlers creates a new schedule block handlers instance.
func NewScheduleBlockHandlers(service *timetables.Service, logger *zerolog.Logger) *ScheduleBlockHandlers {
	return &ScheduleBlockHandlers{
		service: service,
		log:     logger,
	}
}

// CreateBlockRequest represents the create schedule block body. Range
// checks happen in the service so every entry point reports them alike.
type CreateBlockRequest struct {
	TableID     string `json:"table_id" binding:"required"`
	Day         *int   `json:"day" binding:"required"`
	StartTime   *int   `json:"start_time" binding:"required"`
	StartMinute int    `json:"start_minute"`
	EndTime     *int   `json:"end_time" binding:"required"`
	EndMinute   int    `json:"end_minute"`
	Label       string `json:"label" binding:"max=256"`
}

// UpdateBlockRequest is one entry of the bulk update body.
type UpdateBlockRequest struct {
	ID          string `json:"id" binding:"required"`
	Day         *int   `json:"day" binding:"required"`
	StartTime   *int   `json:"start_time" binding:"required"`
	StartMinute int    `json:"start_minute"`
	EndTime     *int   `json:"end_time" binding:"required"`
	EndMinute   int    `json:"end_minute"`
	Label       string `json:"label" binding:"max=256"`
}

// CreateBlock places a block for the user.
// POST /api/v1/scheduleblocks
func (h *ScheduleBlockHandlers) CreateBlock(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create schedule block request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	block, err := h.service.CreateBlock(c.Request.Context(), user.ID, timetables.BlockInput{
		TimetableID: req.TableID,
		Day:         *req.Day,
		StartHour:   *req.StartTime,
		StartMinute: req.StartMinute,
		EndHour:     *req.EndTime,
		EndMinute:   req.EndMinute,
		Label:       req.Label,
	})
	if err != nil {
		respondError(c, h.log, err, "failed to create schedule block")
		return
	}

	h.log.Info().
		Str("block_id", block.ID).
		Str("timetable_id", block.TimetableID).
		Str("user_id", user.ID).
		Msg("schedule block created")
	c.JSON(http.StatusCreated, proto.BlockFromStore(block))
}

// GetBlock returns one block.
// GET /api/v1/scheduleblocks/:id
func (h *ScheduleBlockHandlers) GetBlock(c *gin.Context) {
	block, err := h.service.GetBlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get schedule block")
		return
	}
	c.JSON(http.StatusOK, proto.BlockFromStore(block))
}

// UpdateBlocks applies a list of block updates, all or nothing.
// PATCH /api/v1/scheduleblocks
func (h *ScheduleBlockHandlers) UpdateBlocks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req []UpdateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update schedule blocks request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	updates := make([]timetables.BlockUpdate, 0, len(req))
	for _, r := range req {
		updates = append(updates, timetables.BlockUpdate{
			ID:          r.ID,
			Day:         *r.Day,
			StartHour:   *r.StartTime,
			StartMinute: r.StartMinute,
			EndHour:     *r.EndTime,
			EndMinute:   r.EndMinute,
			Label:       r.Label,
		})
	}

	blocks, err := h.service.UpdateBlocks(c.Request.Context(), user.ID, updates)
	if err != nil {
		respondError(c, h.log, err, "failed to update schedule blocks")
		return
	}
	c.JSON(http.StatusAccepted, proto.BlocksFromStore(blocks))
}

// DeleteBlock removes one of the user's blocks.
// DELETE /api/v1/scheduleblocks/:id
func (h *ScheduleBlockHandlers) DeleteBlock(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.service.DeleteBlock(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, h.log, err, "failed to delete schedule block")
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: 1})
}
