// Package validation checks request bodies at the HTTP boundary.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"curriculum-graph/internal/domain/topic"
	"curriculum-graph/internal/interfaces/http/dto"

	"github.com/go-playground/validator/v10"
)

// CatalogSource returns the catalogue class tags are checked against.
type CatalogSource func() *topic.Catalog

// Validator wraps go-playground/validator with the API's custom rules.
type Validator struct {
	validate *validator.Validate
	catalog  CatalogSource
}

// New creates a validator. Class tags are resolved through catalog on every
// call so a reloaded catalogue takes effect immediately.
func New(catalog CatalogSource) *Validator {
	v := &Validator{
		validate: validator.New(),
		catalog:  catalog,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("notblank", notBlank)
	_ = v.validate.RegisterValidation("classtag", v.classTag)

	return v
}

// Validate checks a request struct. The returned slice is empty when i is valid.
func (v *Validator) Validate(i interface{}) []dto.FieldError {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []dto.FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, dto.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *Validator) classTag(fl validator.FieldLevel) bool {
	tag := topic.ClassTag(fl.Field().String())
	if tag == "" {
		return false
	}
	return v.catalog().Has(tag)
}

// fieldPath drops the struct name from the namespace: "SubTopicsRequest.subtopics[2]" -> "subtopics[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "classtag":
		return fmt.Sprintf("unknown class tag %q", fe.Value())
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must contain at most %s items", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
