package service

import (
	"errors"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// validate runs struct validation and reports failures as an INVALID_INPUT
// AppError carrying per-field messages.
func validate(v any) error {
	err := validator.Validate(v)
	if err == nil {
		return nil
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		appErr := apperrors.InvalidInput("some fields are invalid")
		appErr.Fields = valErr.Fields()
		return appErr
	}
	return apperrors.InvalidInput(err.Error())
}
