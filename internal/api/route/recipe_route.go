package route

import (
	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/app"
	"github.com/gin-gonic/gin"
)

func NewRecipeRouter(appCtx *app.App, group *gin.RouterGroup) {
	rc := controller.NewRecipeController(appCtx.Store, appCtx.Hub)

	group.GET("recipes", rc.AllRecipes)
	group.POST("recipes", rc.CreateRecipe)
	group.GET("recipes/:id", rc.GetRecipe)
	group.PATCH("recipes/:id", rc.UpdateRecipe)
	group.DELETE("recipes/:id", rc.DeleteRecipe)
	group.GET("recipes/:id/ingredients", rc.Ingredients)
	group.POST("recipes/:id/ingredients", rc.AddIngredient)
	group.DELETE("recipes/:id/ingredients/:ingredientId", rc.DeleteIngredient)
}
