package route

import (
	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
)

func NewScheduleRouter(appCtx *app.App, group *gin.RouterGroup) {
	sc := controller.NewScheduleController(appCtx.Store, appCtx.Hub)

	group.GET("schedule", sc.Range)
	group.PUT("schedule", sc.Put)
	group.DELETE("schedule/:id", sc.Delete)
}
