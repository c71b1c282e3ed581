package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/forgehub/internal/authz"
	"github.com/looplj/forgehub/internal/contexts"
)

func TestWithAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(cfg AccountConfig, requireAccount bool) *gin.Engine {
		router := gin.New()
		router.Use(WithAccount(cfg))

		handlers := gin.HandlersChain{}
		if requireAccount {
			handlers = append(handlers, RequireAccount())
		}

		handlers = append(handlers, func(c *gin.Context) {
			actor, _ := contexts.GetActorID(c.Request.Context())

			p, ok := authz.GetPrincipal(c.Request.Context())

			c.JSON(http.StatusOK, gin.H{
				"actor":     actor,
				"principal": ok && p.IsAccount(),
			})
		})

		router.GET("/who", handlers...)

		return router
	}

	do := func(router *gin.Engine, header, account string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if account != "" {
			req.Header.Set(header, account)
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		return rr
	}

	t.Run("header binds the account", func(t *testing.T) {
		router := newRouter(AccountConfig{}, false)

		rr := do(router, DefaultAccountHeader, "acc_alice")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"actor":"acc_alice","principal":true}`, rr.Body.String())
	})

	t.Run("custom header name", func(t *testing.T) {
		router := newRouter(AccountConfig{Header: "X-Acting-User"}, false)

		rr := do(router, "X-Acting-User", "acc_bob")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"actor":"acc_bob","principal":true}`, rr.Body.String())
	})

	t.Run("missing header stays anonymous", func(t *testing.T) {
		router := newRouter(AccountConfig{}, false)

		rr := do(router, "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"actor":"","principal":false}`, rr.Body.String())
	})

	t.Run("require account rejects anonymous callers", func(t *testing.T) {
		router := newRouter(AccountConfig{}, true)

		rr := do(router, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = do(router, DefaultAccountHeader, "acc_alice")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("whitespace-only header stays anonymous", func(t *testing.T) {
		router := newRouter(AccountConfig{}, true)

		rr := do(router, DefaultAccountHeader, "   ")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
