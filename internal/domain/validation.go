package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MaxNarrationLength   = 1000
	MaxReasonLength      = 500
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// accountcode: fixed-width numeric chart code
		_ = validate.RegisterValidation("accountcode", func(fl validator.FieldLevel) bool {
			_, err := TypeFromCode(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("accounttype", func(fl validator.FieldLevel) bool {
			return AccountType(fl.Field().String()).IsValid()
		})
		_ = validate.RegisterValidation("depmethod", func(fl validator.FieldLevel) bool {
			return DepreciationMethod(fl.Field().String()).IsValid()
		})
	})
	return validate
}

// ValidateStruct checks v against its `validate` tags. Failures wrap
// ErrValidation and name every offending field.
func ValidateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxAccountNameLength)
	}
	return nil
}
