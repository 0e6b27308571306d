package middleware

import (
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/internal/service"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// NewAuthMiddleware resolves the bearer token of the request to a user. Every
// failure gives the same 401 so clients can't tell why a token was refused.
func NewAuthMiddleware(s *service.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok {
			abortUnauthenticated(c)
			return
		}

		user, err := s.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				zap.L().Error("Failed to resolve session", zap.Error(err), zap.String("requestID", requestID))
			}

			abortUnauthenticated(c)
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("token", strings.TrimSpace(token))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":     "Please authenticate",
		"requestID": c.GetString("requestID"),
	})
}

// CurrentUser returns the user set by the auth middleware
func CurrentUser(c *gin.Context) *model.User {
	return c.MustGet("user").(*model.User)
}

// CurrentToken returns the token the request was authenticated with
func CurrentToken(c *gin.Context) string {
	return c.GetString("token")
}
