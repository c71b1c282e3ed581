package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/server/api"
	"github.com/looplj/forgehub/internal/server/middleware"
)

type Handlers struct {
	fx.In

	Repos   *api.RepoHandlers
	Commits *api.CommitHandlers
}

func SetupRoutes(server *Server, handlers Handlers) {
	server.Use(middleware.AccessLog())
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))
	server.Use(middleware.WithAccount(server.Config.Account))

	// Setup CORS middleware at server level if enabled
	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	root := server.Group(server.Config.BasePath)

	root.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := root.Group("/v1")

	repos := v1.Group("/repos")
	{
		repos.GET("", handlers.Repos.List)
		repos.GET("/find", handlers.Repos.Find)
		repos.GET("/count", handlers.Repos.Count)
		repos.POST("", middleware.RequireAccount(), handlers.Repos.Create)
		repos.GET("/:repo", handlers.Repos.Get)
		repos.PATCH("/:repo", middleware.RequireAccount(), handlers.Repos.Update)
		repos.DELETE("/:repo", middleware.RequireAccount(), handlers.Repos.Remove)
	}

	commits := v1.Group("/repos/:repo/commits")
	{
		commits.GET("", handlers.Commits.List)
		commits.GET("/find", handlers.Commits.Find)
		commits.GET("/count", handlers.Commits.Count)
		commits.GET("/:id", handlers.Commits.Get)
	}
}
