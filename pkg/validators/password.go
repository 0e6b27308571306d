package validators

import (
	"errors"
	"strings"
)

const (
	minPasswordLength = 7
	maxPasswordLength = 255
)

var (
	ErrPasswordTooShort  = errors.New("password must be at least 7 characters long")
	ErrPasswordTooLong   = errors.New("password is too long")
	ErrPasswordEmpty     = errors.New("no password provided")
	ErrPasswordForbidden = errors.New(`password cannot contain "password"`)
)

// PasswordValidator checks the trimmed password p
func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < minPasswordLength {
		return ErrPasswordTooShort
	}

	if len(p) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	if strings.Contains(strings.ToLower(p), "password") {
		return ErrPasswordForbidden
	}

	return nil
}
