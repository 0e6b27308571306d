package task

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/middleware"
	"bitwise74/task-api/pkg/validators"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var taskUpdatable = []string{"description", "completed"}

func applyTaskUpdates(t *model.Task, fields map[string]json.RawMessage) error {
	next := *t

	if raw, ok := fields["description"]; ok {
		var desc string
		if err := json.Unmarshal(raw, &desc); err != nil {
			return errors.New("description must be a string")
		}
		next.Description = strings.TrimSpace(desc)

		if err := validators.DescriptionValidator(next.Description); err != nil {
			return err
		}
	}

	if raw, ok := fields["completed"]; ok {
		if err := json.Unmarshal(raw, &next.Completed); err != nil {
			return errors.New("completed must be a boolean")
		}
	}

	*t = next
	return nil
}

// TaskUpdate changes the description or completion of a task. Any other
// field rejects the whole request before anything is loaded.
func TaskUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := middleware.CurrentUser(c).ID

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	fields, err := validators.UpdateFields(body, taskUpdatable...)
	if err != nil {
		msg := "Invalid request body"
		if errors.Is(err, validators.ErrInvalidUpdates) {
			msg = err.Error()
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     msg,
			"requestID": requestID,
		})
		return
	}

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

	if err := applyTaskUpdates(t, fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := d.Store.SaveTask(c.Request.Context(), t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			taskNotFound(c, requestID)
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to update task",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, t)
}
