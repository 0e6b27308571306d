package task

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/middleware"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func taskNotFound(c *gin.Context, requestID string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":     "Task not found",
		"requestID": requestID,
	})
}

func TaskFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := middleware.CurrentUser(c).ID

	t, err := d.Store.TaskOf(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			taskNotFound(c, requestID)
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, t)
}
