package controller

import (
	"net/http"

	"github.com/bassista/mealsync/internal/config"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse is what a client needs to know before connecting.
type ConfigurationResponse struct {
	PushPath      string `json:"pushPath"`
	Granularity   string `json:"granularity"`
	StaleTimeSecs int    `json:"staleTimeSecs"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the client defaults the server recommends.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	response := ConfigurationResponse{
		PushPath:      "/push",
		Granularity:   cc.config.Client.Granularity,
		StaleTimeSecs: int(cc.config.Client.StaleTime.Seconds()),
	}
	c.JSON(http.StatusOK, response)
}
