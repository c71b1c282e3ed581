package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/looplj/forgehub/internal/log"
	"github.com/looplj/forgehub/internal/objects"
)

// Recovery converts panics into 500 responses and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered",
					log.Any("panic", r),
					log.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, objects.ErrorResponse{
					Error: objects.Error{
						Type:    http.StatusText(http.StatusInternalServerError),
						Message: fmt.Sprintf("%v", r),
					},
				})
			}
		}()

		c.Next()
	}
}
