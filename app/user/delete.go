package user

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/service"
	"bitwise74/task-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserDelete removes the account with its tasks and sessions
func UserDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := middleware.CurrentUser(c)

	if err := d.Store.DeleteUser(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// The account is gone already, a leftover object is only logged
	if err := d.Avatars.Delete(c.Request.Context(), user.ID); err != nil {
		zap.L().Warn("Failed to delete avatar of deleted user", zap.Error(err), zap.String("requestID", requestID))
	}
	forgetAvatar(d, user.ID, requestID)

	service.Notify(d.Mailer, service.CancelationMessage(user.Email, user.Name))

	c.JSON(http.StatusOK, user)
}
