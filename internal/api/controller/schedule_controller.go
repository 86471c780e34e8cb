package controller

import (
	"net/http"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ScheduleController handles meal schedule endpoints.
type ScheduleController struct {
	store     household.ScheduleStore
	notifier  Notifier
	validator *validator.Validate
}

func NewScheduleController(store household.ScheduleStore, notifier Notifier) *ScheduleController {
	return &ScheduleController{
		store:     store,
		notifier:  notifier,
		validator: validator.New(),
	}
}

// Range handles GET /schedule?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (sc *ScheduleController) Range(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if _, err := calendar.ParseDate(from); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	if _, err := calendar.ParseDate(to); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	days, err := sc.store.ScheduleRange(from, to)
	if err != nil {
		respondError(c, "schedule-controller", err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// Put handles PUT /schedule: create or replace one entry.
func (sc *ScheduleController) Put(c *gin.Context) {
	var entry model.ScheduleEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := sc.validator.Struct(entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, dates, err := sc.store.PutScheduleEntry(entry)
	if err != nil {
		respondError(c, "schedule-controller", err)
		return
	}
	logger.WithComponent("schedule-controller").Debugf("saved entry %s on %v", saved.ID, dates)
	notify(sc.notifier, cache.Schedule, dates...)
	c.JSON(http.StatusOK, saved)
}

// Delete handles DELETE /schedule/:id.
func (sc *ScheduleController) Delete(c *gin.Context) {
	date, err := sc.store.DeleteScheduleEntry(c.Param("id"))
	if err != nil {
		respondError(c, "schedule-controller", err)
		return
	}
	notify(sc.notifier, cache.Schedule, date)
	c.Status(http.StatusNoContent)
}
