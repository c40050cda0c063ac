package service

import (
	"errors"
	"fmt"
	"strings"

	"pos-service/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct runs struct tag validation and reports failures as INVALID_INPUT.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperror.ErrInvalidInput.WithMessage("invalid fields: %s", strings.Join(fields, ", "))
}
