package route

import (
	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/api/middleware"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
)

// NewSessionRouter registers login (public) and logout (token required).
func NewSessionRouter(appCtx *app.App, group *gin.RouterGroup) {
	sc := controller.NewSessionController(appCtx.Store, appCtx.Hub)
	timeoutMiddleware := middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout)

	group.POST("session", timeoutMiddleware, sc.Login)
	group.DELETE("session", middleware.BearerAuth(appCtx.Store.HasSession), timeoutMiddleware, sc.Logout)
}
