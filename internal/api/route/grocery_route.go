package route

import (
	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
)

func NewGroceryRouter(appCtx *app.App, group *gin.RouterGroup) {
	gc := controller.NewGroceryController(appCtx.Store, appCtx.Hub)

	gc.Crud().RegisterCrudRoutes(group)
	group.POST("groceries/clear", gc.ClearChecked)
	group.POST("groceries/generate", gc.Generate)
}
