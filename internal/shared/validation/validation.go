// Package validation registers World Tour specific validator tags on the gin
// binding engine.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CatalogKinds are the bookable catalog item kinds
var CatalogKinds = []string{"destination", "room_type", "flight", "package"}

// Register adds the custom tags to v
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("catalogkind", validateCatalogKind); err != nil {
		return err
	}
	return v.RegisterValidation("discount", validateDiscount)
}

func validateCatalogKind(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, kind := range CatalogKinds {
		if value == kind {
			return true
		}
	}
	return false
}

// validateDiscount accepts percentages within [0, 100]
func validateDiscount(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return f >= 0 && f <= 100
}

// FieldErrors flattens validator errors into field → tag pairs for responses
func FieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
