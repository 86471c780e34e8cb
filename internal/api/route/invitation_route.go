package route

import (
	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
)

func NewInvitationRouter(appCtx *app.App, group *gin.RouterGroup) {
	controller.NewInvitationController(appCtx.Store, appCtx.Hub).RegisterCrudRoutes(group)
}
