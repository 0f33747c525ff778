package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) ListWorkouts(c *gin.Context) {
	workouts, err := h.catalog.Workouts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": workouts})
}

func (h HandlerSet) GetWorkout(c *gin.Context) {
	workout, err := h.catalog.Workout(c.Request.Context(), c.Param("workoutId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

func (h HandlerSet) ListTrainingPlans(c *gin.Context) {
	plans, err := h.catalog.TrainingPlans(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": plans})
}

func (h HandlerSet) LatestFirmware(c *gin.Context) {
	release, err := h.firmware.Latest(c.Request.Context(), queryMap(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}
