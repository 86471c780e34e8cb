package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CrudService defines the minimal interface required for CRUD operations.
// T is the resource, P the body of a partial update.
type CrudService[T, P any] interface {
	All() ([]T, error)
	Create(item T) (T, error)
	Update(id string, patch P) (T, error)
	Remove(id string) error
}

// CrudController provides generic CRUD handlers for resources. Every
// successful write is announced on the push channel under Resource.
type CrudController[T, P any] struct {
	Service   CrudService[T, P]
	Validator *validator.Validate
	Notifier  Notifier
	Resource  string
}

// RegisterCrudRoutes registers CRUD endpoints for the resource on the given router group.
func (cc *CrudController[T, P]) RegisterCrudRoutes(rg *gin.RouterGroup) {
	rg.GET("/"+cc.Resource, cc.GetAll)
	rg.POST("/"+cc.Resource, cc.Create)
	rg.PATCH("/"+cc.Resource+"/:id", cc.Update)
	rg.DELETE("/"+cc.Resource+"/:id", cc.Delete)
}

// GetAll handles GET requests to list all resources.
func (cc *CrudController[T, P]) GetAll(c *gin.Context) {
	items, err := cc.Service.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read resource list"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Create handles POST requests; the server assigns the id.
func (cc *CrudController[T, P]) Create(c *gin.Context) {
	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if !cc.valid(c, item) {
		return
	}
	created, err := cc.Service.Create(item)
	if err != nil {
		respondError(c, cc.Resource, err)
		return
	}
	notify(cc.Notifier, cc.Resource)
	c.JSON(http.StatusCreated, created)
}

// Update handles PATCH requests carrying a partial update.
func (cc *CrudController[T, P]) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing resource id"})
		return
	}
	var patch P
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if !cc.valid(c, patch) {
		return
	}
	updated, err := cc.Service.Update(id, patch)
	if err != nil {
		respondError(c, cc.Resource, err)
		return
	}
	notify(cc.Notifier, cc.Resource)
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE requests to remove a resource by id.
func (cc *CrudController[T, P]) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing resource id"})
		return
	}
	if err := cc.Service.Remove(id); err != nil {
		respondError(c, cc.Resource, err)
		return
	}
	notify(cc.Notifier, cc.Resource)
	c.Status(http.StatusNoContent)
}

func (cc *CrudController[T, P]) valid(c *gin.Context, v any) bool {
	if cc.Validator == nil {
		return true
	}
	if err := cc.Validator.Struct(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
