package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput checks the struct tags of in. The first failing top-level
// field is mapped through fieldErrs; fields without a mapping yield fallback.
func validateInput(in any, fieldErrs map[string]error, fallback error) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}

	for _, fe := range verrs {
		if mapped, ok := fieldErrs[topLevelField(fe.StructNamespace())]; ok {
			return mapped
		}
	}
	return fallback
}

// topLevelField turns "Input.Pickup.Lat" into "Pickup".
func topLevelField(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return namespace
	}
	return parts[1]
}
