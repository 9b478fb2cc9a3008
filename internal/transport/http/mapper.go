package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/service/timetables"
	"github.com/vovakirdan/timetable-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps service and store errors to status codes. Unknown
// errors are logged and reported as 500.
func respondError(c *gin.Context, logger *zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, timetables.ErrInvalidBlock),
		errors.Is(err, timetables.ErrEmptyUpdate),
		errors.Is(err, store.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, timetables.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not enough permissions"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// DeletedResponse reports how many records a bulk delete removed.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}
