package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/looplj/forgehub/internal/authz"
	"github.com/looplj/forgehub/internal/contexts"
	"github.com/looplj/forgehub/internal/objects"
)

// DefaultAccountHeader names the header carrying the acting account id.
// Identity resolution happens upstream, the id is threaded through opaque.
const DefaultAccountHeader = "X-Forge-Account"

type AccountConfig struct {
	Header string `conf:"header" yaml:"header" json:"header"`
}

// WithAccount binds the caller account from the request header into the
// context. Requests without the header stay anonymous, the entity layer
// decides what anonymous callers may do.
func WithAccount(config AccountConfig) gin.HandlerFunc {
	header := config.Header
	if header == "" {
		header = DefaultAccountHeader
	}

	return func(c *gin.Context) {
		account := strings.TrimSpace(c.GetHeader(header))
		if account == "" {
			c.Next()
			return
		}

		ctx, err := authz.NewAccountContext(c.Request.Context(), account)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, objects.ErrorResponse{
				Error: objects.Error{
					Type:    http.StatusText(http.StatusUnauthorized),
					Message: err.Error(),
				},
			})

			return
		}

		ctx = contexts.WithActorID(ctx, account)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAccount rejects requests that did not authenticate an account.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authz.GetPrincipal(c.Request.Context())
		if !ok || !p.IsAccount() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, objects.ErrorResponse{
				Error: objects.Error{
					Type:    http.StatusText(http.StatusUnauthorized),
					Message: "account required",
				},
			})

			return
		}

		c.Next()
	}
}
