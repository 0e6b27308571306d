package user

import (
	"bitwise74/task-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UserMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
