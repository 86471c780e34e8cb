package controller

import (
	"net/http"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// GroceryCrudService implements CrudService for grocery items.
type GroceryCrudService struct {
	Store household.GroceryStore
}

func (s *GroceryCrudService) All() ([]model.GroceryItem, error) {
	return s.Store.Groceries()
}

func (s *GroceryCrudService) Create(item model.GroceryItem) (model.GroceryItem, error) {
	return s.Store.AddGrocery(item)
}

func (s *GroceryCrudService) Update(id string, patch model.GroceryPatch) (model.GroceryItem, error) {
	return s.Store.UpdateGrocery(id, patch)
}

func (s *GroceryCrudService) Remove(id string) error {
	return s.Store.DeleteGrocery(id)
}

// GroceryController handles the grocery list endpoints.
type GroceryController struct {
	crud      *CrudController[model.GroceryItem, model.GroceryPatch]
	store     household.GroceryStore
	notifier  Notifier
	validator *validator.Validate
}

func NewGroceryController(store household.GroceryStore, notifier Notifier) *GroceryController {
	v := validator.New()
	return &GroceryController{
		crud: &CrudController[model.GroceryItem, model.GroceryPatch]{
			Service:   &GroceryCrudService{Store: store},
			Validator: v,
			Notifier:  notifier,
			Resource:  cache.Groceries,
		},
		store:     store,
		notifier:  notifier,
		validator: v,
	}
}

func (gc *GroceryController) Crud() *CrudController[model.GroceryItem, model.GroceryPatch] {
	return gc.crud
}

// ClearChecked handles POST /groceries/clear.
func (gc *GroceryController) ClearChecked(c *gin.Context) {
	n, err := gc.store.ClearChecked()
	if err != nil {
		respondError(c, "grocery-controller", err)
		return
	}
	logger.WithComponent("grocery-controller").Debugf("cleared %d checked items", n)
	if n > 0 {
		notify(gc.notifier, cache.Groceries)
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

// Generate handles POST /groceries/generate.
func (gc *GroceryController) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := gc.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := gc.store.GenerateGroceries(req.From, req.To)
	if err != nil {
		respondError(c, "grocery-controller", err)
		return
	}
	if len(added) > 0 {
		notify(gc.notifier, cache.Groceries)
	}
	c.JSON(http.StatusOK, added)
}
