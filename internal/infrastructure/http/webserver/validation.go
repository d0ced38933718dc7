package webserver

import (
	"errors"
	"strings"

	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var markupPatterns = []string{
	"<", ">", "javascript:", "vbscript:", "data:text/html",
}

// newValidator returns a validator with the form rules registered
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("no_markup", validateNoMarkup)
	return v
}

// validateNoMarkup rejects free text that carries HTML or script URLs. The
// text is escaped on output anyway; this keeps it out of backend prompts.
func validateNoMarkup(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, pattern := range markupPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// validationError converts validator errors into an AppError listing each field
func validationError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}

	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out = append(out, apperrors.ValidationError{
			Field:   field,
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: field + " failed " + fe.Tag() + " validation",
		})
	}
	return apperrors.NewValidationErrors(out)
}

// validationFields validates v and returns the lower-cased names of the
// fields that failed
func (s *WebServer) validationFields(v interface{}) []string {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"form"}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fields
}
