package route

import (
	"net/http"

	"github.com/bassista/mealsync/internal/api/middleware"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the engine serving the household API and the push
// endpoint.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	// The websocket outlives any request timeout and authenticates itself.
	r.GET("/push", gin.WrapH(appCtx.Hub))

	publicRouter := r.Group("")
	NewConfigurationRouter(appCtx, publicRouter)
	NewSessionRouter(appCtx, publicRouter)

	protectedRouter := r.Group("")
	protectedRouter.Use(middleware.BearerAuth(appCtx.Store.HasSession))
	protectedRouter.Use(middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout))

	NewGroceryRouter(appCtx, protectedRouter)
	NewRecipeRouter(appCtx, protectedRouter)
	NewScheduleRouter(appCtx, protectedRouter)
	NewInvitationRouter(appCtx, protectedRouter)

	return r
}
