//nolint:gochecknoglobals
package validator

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator - Validator type.
type Validator struct {
	validate *validator.Validate
}

var (
	validatorInstance *Validator
	once              sync.Once
)

// NewValidator - returns the shared Validator. go-playground caches struct metadata per
// instance, so one instance serves the whole process.
func NewValidator() *Validator {
	once.Do(func() {
		validatorInstance = &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
	})

	return validatorInstance
}

// ValidateStruct - apply validation and return one entry per failed rule.
func (v *Validator) ValidateStruct(str interface{}) []*ValidationErrorResponse {
	var valErrorsResResult []*ValidationErrorResponse

	err := v.validate.Struct(str)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, err := range validationErrors {
				var element ValidationErrorResponse
				element.FailedField = err.StructNamespace()
				element.Tag = err.Tag()
				element.Value = err.Param()
				valErrorsResResult = append(valErrorsResResult, &element)
			}
		}
	}

	return valErrorsResResult
}

// Validate - apply validation and return a *ValidationError when any rule fails.
func (v *Validator) Validate(str interface{}) error {
	if errs := v.ValidateStruct(str); len(errs) > 0 {
		return NewValidationError(errs)
	}

	return nil
}
