package validators

import "errors"

var (
	ErrNameEmpty          = errors.New("name is required")
	ErrAgeNegative        = errors.New("age must be a positive number")
	ErrDescriptionEmpty   = errors.New("description is required")
	ErrDescriptionTooLong = errors.New("description is too long")
)

const maxDescriptionLength = 4096

func NameValidator(n string) error {
	if n == "" {
		return ErrNameEmpty
	}

	return nil
}

func AgeValidator(a int) error {
	if a < 0 {
		return ErrAgeNegative
	}

	return nil
}

// DescriptionValidator checks a trimmed task description
func DescriptionValidator(d string) error {
	if d == "" {
		return ErrDescriptionEmpty
	}

	if len(d) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}

	return nil
}
