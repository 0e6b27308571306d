package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Validate only runs behind the auth middleware, reaching it means the token is live
func Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userID": c.GetString("userID"),
	})
}
