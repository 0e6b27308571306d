package user

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/service"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/middleware"
	"bitwise74/task-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AvatarPath is the public path of the avatar of user id and the key its
// response is cached under
func AvatarPath(id string) string {
	return "/users/" + id + "/avatar"
}

// forgetAvatar drops the cached avatar response of user id
func forgetAvatar(d *internal.Deps, id, requestID string) {
	if d.AvatarCache == nil {
		return
	}

	// Missing entries error out on some stores
	if err := d.AvatarCache.Delete(AvatarPath(id)); err != nil {
		zap.L().Debug("Cached avatar not removed", zap.Error(err), zap.String("requestID", requestID))
	}
}

func AvatarUpload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := middleware.CurrentUser(c)

	fh, err := c.FormFile("avatar")
	if err != nil {
		msg := validators.ErrNoImage

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = validators.ErrImageTooLarge
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     msg.Error(),
			"requestID": requestID,
		})
		return
	}

	code, data, err := validators.AvatarValidator(fh, d.AvatarPolicy.MaxSize)
	if err != nil {
		if code == http.StatusInternalServerError {
			c.JSON(code, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to read avatar", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	png, err := service.NormalizeAvatar(data, d.AvatarPolicy.Dimension)
	if err != nil {
		if errors.Is(err, service.ErrAvatarCorrupt) && d.AvatarPolicy.CorruptIsClientError {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Image could not be processed",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to normalize avatar", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := d.Avatars.Save(c.Request.Context(), user.ID, png); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save avatar", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	forgetAvatar(d, user.ID, requestID)
	c.Status(http.StatusOK)
}

func AvatarDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := middleware.CurrentUser(c)

	if err := d.Avatars.Delete(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete avatar", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	forgetAvatar(d, user.ID, requestID)
	c.Status(http.StatusOK)
}

// AvatarFetch serves the avatar of any user, no authentication needed
func AvatarFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.Param("id")

	notFound := func() {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Avatar not found",
			"requestID": requestID,
		})
	}

	if _, err := d.Store.UserByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound()
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	data, err := d.Avatars.Load(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound()
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load avatar", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}
