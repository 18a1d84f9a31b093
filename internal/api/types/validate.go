package types

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// Engine returns the shared validator. Field names in errors follow json tags.
func Engine() *validator.Validate {
	once.Do(func() {
		inst = validator.New(validator.WithRequiredStructEnabled())
		inst.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return inst
}

func ValidateStruct(s any) error {
	return Engine().Struct(s)
}

// FieldProblems splits a validation error into missing and invalid field
// names, in declaration order and without duplicates.
func FieldProblems(err error) (missing, invalid []string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, nil
	}

	for _, fe := range verrs {
		name, _, _ := strings.Cut(fe.Field(), "[")
		switch fe.Tag() {
		case "required", "required_without":
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		default:
			if !slices.Contains(invalid, name) {
				invalid = append(invalid, name)
			}
		}
	}
	return missing, invalid
}
