package service

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that names fields by their json tag and knows the price rule.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("price", validPrice); err != nil {
		panic(err)
	}
	return v
}

func validPrice(fl validator.FieldLevel) bool {
	_, ok := parsePrice(fl.Field().String())
	return ok
}

func parsePrice(raw string) (float64, bool) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, false
	}
	return price, true
}

// toValidationError reports the first failing field only.
func toValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	first := errs[0]
	kind := catalogerrors.MissingField
	if first.Tag() == "price" {
		kind = catalogerrors.InvalidPrice
	}
	return &catalogerrors.ValidationError{Field: first.Field(), Kind: kind}
}
