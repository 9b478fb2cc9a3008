package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/proto"
	"github.com/vovakirdan/timetable-server/internal/store"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	store store.UserStore
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.UserStore, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UpdateMeRequest holds the profile fields a user may change.
type UpdateMeRequest struct {
	Nickname *string `json:"nickname"`
	ColorID  *int64  `json:"color_id" binding:"omitempty,min=0"`
}

// GetMe returns the authenticated user.
// GET /api/v1/users/me
func (h *UserHandlers) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, proto.UserFromStore(user))
}

// UpdateMe changes nickname and color and marks the account active.
// PATCH /api/v1/users/me
func (h *UserHandlers) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update user request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}
	if req.Nickname != nil && strings.TrimSpace(*req.Nickname) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "nickname must not be empty string"})
		return
	}

	updated := *user
	if req.Nickname != nil {
		updated.Nickname = strings.TrimSpace(*req.Nickname)
	}
	if req.ColorID != nil {
		updated.ColorID = *req.ColorID
	}
	updated.IsActive = true

	saved, err := h.store.UpdateUser(c.Request.Context(), &updated)
	if err != nil {
		respondError(c, h.log, err, "failed to update user")
		return
	}

	h.log.Info().Str("user_id", saved.ID).Msg("user updated")
	c.JSON(http.StatusOK, proto.UserFromStore(saved))
}

// ListColors returns the display colors.
// GET /api/v1/colors
func (h *UserHandlers) ListColors(c *gin.Context) {
	colors, err := h.store.ListColors(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list colors")
		return
	}
	c.JSON(http.StatusOK, proto.ColorsFromStore(colors))
}
