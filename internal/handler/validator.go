package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/live-request-queue/internal/repository"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
// Failures come back as validation_error domain errors so they are raised
// before any write and map to a 400 like every other malformed input.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds the validator used by all handlers.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return repository.Validation(err.Error())
	}
	return nil
}
