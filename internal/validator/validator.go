package validator

import (
	"reflect"
	"strings"
	"sync"

	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidator builds the shared validator. Decimal fields are validated as
// float64 so tags like gte=0 work on money amounts, and reported field names
// follow the json tags the client sent.
func NewValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

func GetValidator() *validator.Validate {
	return NewValidator()
}

func ValidateRequest(req interface{}) error {
	if err := GetValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func decimalValue(field reflect.Value) interface{} {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case decimal.NullDecimal:
		if !v.Valid {
			return nil
		}
		f, _ := v.Decimal.Float64()
		return f
	}
	return nil
}
