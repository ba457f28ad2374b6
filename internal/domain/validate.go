package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a money column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(validateLineItem, LineItem{})
	v.RegisterStructValidation(validateCreateOrder, CreateOrderInput{})
	return v
}

// hasCents reports whether d fits in two decimal places without rounding.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func validateLineItem(sl validator.StructLevel) {
	item := sl.Current().Interface().(LineItem)
	if !hasCents(item.Price) {
		sl.ReportError(item.Price, "price", "Price", "cents", "")
	}
}

func validateCreateOrder(sl validator.StructLevel) {
	in := sl.Current().Interface().(CreateOrderInput)
	if !hasCents(in.Subtotal) {
		sl.ReportError(in.Subtotal, "subtotal", "Subtotal", "cents", "")
	}
	if !hasCents(in.Tax) {
		sl.ReportError(in.Tax, "tax", "Tax", "cents", "")
	}
	// Oversized parts are already reported on their own fields.
	if in.Subtotal.LessThanOrEqual(MaxAmount) && in.Tax.LessThanOrEqual(MaxAmount) && in.Total().GreaterThan(MaxAmount) {
		sl.ReportError(in.Total(), "total", "Total", "lte", MaxAmount.String())
	}
}

// Validate checks v against its validate tags and returns a *ValidationError
// listing every failing field, or nil.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "cents":
		return "must have at most 2 decimal places"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}
