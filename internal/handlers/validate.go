// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"backoffice/internal/apierr"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match what
// the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-limited JSON body into dst. The body is read in
// full first so the size limit surfaces as its own error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.New(apierr.ErrValidation, "Request body is too large.")
		}
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apierr.New(apierr.ErrValidation, "Request body is empty.")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apierr.New(apierr.ErrValidation, "Malformed JSON body.")
	}
	return nil
}

// validateStruct runs the struct tags of v and turns the first failure
// into a validation error with a readable message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	return apierr.New(apierr.ErrValidation, "%s", fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters).", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater.", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries.", field, fe.Param())
	case "email":
		return field + " must be a valid email address."
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", field, fe.Param())
	case "numeric":
		return field + " must contain digits only."
	default:
		return field + " is invalid."
	}
}
