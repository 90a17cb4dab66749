package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ====== LOẠI LỖI ======
// Controller map các loại lỗi này sang HTTP status code
var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadySubmitted = errors.New("already submitted")
)

// Error là lỗi domain kèm message trả về client
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrQuizNotFound       = &Error{Kind: ErrNotFound, Message: "Quiz not found"}
	ErrAttemptNotFound    = &Error{Kind: ErrNotFound, Message: "Quiz attempt not found"}
	ErrUserNotFound       = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Message: "Invalid credentials"}
	ErrEmailTaken         = &Error{Kind: ErrConflict, Message: "User already exists"}
	ErrNotAttemptOwner    = &Error{Kind: ErrForbidden, Message: "You do not have access to this attempt"}
	ErrAttemptSubmitted   = &Error{Kind: ErrAlreadySubmitted, Message: "Attempt has already been submitted"}
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError chứa chi tiết lỗi theo field, errors.Is khớp với ErrValidation
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+" "+d.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError chuyển lỗi binding/decode thành ValidationError
func NewValidationError(err error) error {
	if err == nil {
		return nil
	}
	var existing *ValidationError
	if errors.As(err, &existing) {
		return existing
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, FieldError{Field: fieldPath(fe), Message: describe(fe)})
		}
		return &ValidationError{Details: details}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Details: []FieldError{{
			Field:   typeErr.Field,
			Message: "must be of type " + typeErr.Type.String(),
		}}}
	}

	return &ValidationError{Details: []FieldError{{Field: "body", Message: err.Error()}}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	UseJSONFieldNames(v)
	return v
}

// ====== VALIDATOR ======
// UseJSONFieldNames: lỗi validate báo theo tên field json.
// Áp dụng cho cả binding engine của gin để hai bên thống nhất.
func UseJSONFieldNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}

func validateInput(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return NewValidationError(err)
	}
	return nil
}

// fieldPath bỏ tên struct ngoài cùng: "SignupInput.email" -> "email"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		case reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
