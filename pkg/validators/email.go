// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("email is invalid")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EmailValidator expects an already trimmed and lowercased address
func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if err := validate.Var(e, "email"); err != nil {
		return ErrEmailInvalid
	}

	return nil
}
