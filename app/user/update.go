package user

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

var userUpdatable = []string{"name", "email", "password", "age"}

// applyUserUpdates validates every field before touching u
func applyUserUpdates(u *model.User, fields map[string]json.RawMessage) error {
	next := *u

	for k, raw := range fields {
		switch k {
		case "name":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return errors.New("name must be a string")
			}
			next.Name = strings.TrimSpace(name)

			if err := validators.NameValidator(next.Name); err != nil {
				return err
			}
		case "email":
			var email string
			if err := json.Unmarshal(raw, &email); err != nil {
				return errors.New("email must be a string")
			}
			next.Email = strings.ToLower(strings.TrimSpace(email))

			if err := validators.EmailValidator(next.Email); err != nil {
				return err
			}
		case "password":
			var password string
			if err := json.Unmarshal(raw, &password); err != nil {
				return errors.New("password must be a string")
			}

			next.Password = strings.TrimSpace(password)

			if err := validators.PasswordValidator(next.Password); err != nil {
				return err
			}
		case "age":
			var age int
			if err := json.Unmarshal(raw, &age); err != nil {
				return errors.New("age must be a number")
			}

			if err := validators.AgeValidator(age); err != nil {
				return err
			}
			next.Age = age
		}
	}

	*u = next
	return nil
}

func UserUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := middleware.CurrentUser(c)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	fields, err := validators.UpdateFields(body, userUpdatable...)
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

	if err := applyUserUpdates(user, fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := d.Store.SaveUser(c.Request.Context(), user); err != nil {
		msg := "Failed to update user"
		if errors.Is(err, store.ErrEmailTaken) {
			msg = "This email is already registered"
		} else {
			zap.L().Error("Failed to update user", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     msg,
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, user)
}
