package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looplj/forgehub/internal/entity"
	"github.com/looplj/forgehub/internal/objects"
)

// JSONError returns a JSON error response and adds the error to gin context for access logging.
func JSONError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

// RenderError maps entity errors to their HTTP status and error code.
// Anything else is an internal error.
func RenderError(c *gin.Context, err error) {
	ee, ok := entity.AsError(err)
	if !ok {
		JSONError(c, http.StatusInternalServerError, err)
		return
	}

	_ = c.Error(err)
	c.JSON(ee.HTTPStatus, objects.ErrorResponse{
		Error: objects.Error{
			Code:    ee.Code,
			Message: ee.Message,
			Details: ee.Details,
		},
	})
}
