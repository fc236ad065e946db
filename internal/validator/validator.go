package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMinLen         = 3
	UsernameMaxLen         = 50
	RegisterPasswordMinLen = 6
	ResetPasswordMinLen    = 8
)

// ValidationError describes one failed rule on one field.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// HasTag reports whether any field failed the given rule.
func (ve ValidationErrors) HasTag(tag string) bool {
	for _, e := range ve {
		if e.Tag == tag {
			return true
		}
	}
	return false
}

// Validator wraps go-playground/validator with the service's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
	v.registerRules()
	return v
}

// Validate checks a struct and returns ValidationErrors, or nil.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
		return n >= UsernameMinLen && n <= UsernameMaxLen
	})
	v.validate.RegisterValidation("password_register", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= RegisterPasswordMinLen
	})
	v.validate.RegisterValidation("password_reset", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= ResetPasswordMinLen
	})
}

// ToValidationErrors converts validator output into ValidationErrors in field order.
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "", Tag: "invalid", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: messageFor(fe),
		})
	}
	return out
}

var messages = map[string]string{
	"Email.email":                "Invalid email format.",
	"Username.username":          fmt.Sprintf("Username must be between %d and %d characters.", UsernameMinLen, UsernameMaxLen),
	"Password.password_register": fmt.Sprintf("Password must be at least %d characters long.", RegisterPasswordMinLen),
	"Password.password_reset":    fmt.Sprintf("Password must be at least %d characters long.", ResetPasswordMinLen),
	"ConfirmPassword.eqfield":    "The passwords do not match. Please try again.",
	"CourseID.gt":                "Missing or invalid course_id",
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if fe.Tag() == "required" {
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
}
