package task

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskList returns the caller's tasks.
//
//	GET /tasks?completed=true
//	GET /tasks?limit=10&skip=20
//	GET /tasks?sortBy=createdAt:desc
func TaskList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := middleware.CurrentUser(c).ID

	q := store.ParseTaskQuery(c.Request.URL.Query())

	tasks, err := d.Store.TasksOf(c.Request.Context(), userID, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list tasks", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, tasks)
}
