// Package task contains the endpoints of the authenticated user's tasks
package task

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/pkg/middleware"
	"bitwise74/task-api/pkg/validators"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createBody struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskCreate stores a new task. The owner is always the caller, whatever the body says.
func TaskCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := middleware.CurrentUser(c).ID

	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	data.Description = strings.TrimSpace(data.Description)
	if err := validators.DescriptionValidator(data.Description); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	t := &model.Task{
		Description: data.Description,
		Completed:   data.Completed,
		OwnerID:     userID,
	}

	if err := d.Store.CreateTask(c.Request.Context(), t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to create task",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, t)
}
