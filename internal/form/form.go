// Package form validates user input before it is sent to the backend.
// Failures are reported per field and never reach the network.
package form

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/centennial-infotech/portal/internal/errors"
)

// Login is the login form.
type Login struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// Signup is the candidate and admin signup form.
type Signup struct {
	Name     string `json:"name" label:"Name" validate:"required,min=2"`
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required,strongpassword"`
}

// VerifyOTP is the email verification form.
type VerifyOTP struct {
	Email string `json:"email" label:"Email" validate:"required,email"`
	OTP   string `json:"otp" label:"OTP" validate:"required,numeric"`
}

// ResetPassword is the password reset form.
type ResetPassword struct {
	Token       string `json:"token" label:"Reset token" validate:"required"`
	NewPassword string `json:"newPassword" label:"Password" validate:"required,strongpassword"`
}

// JobPost is the job post form.
type JobPost struct {
	Title              string   `json:"title" label:"Title" validate:"required,min=3"`
	Description        string   `json:"description" label:"Description" validate:"required,min=10"`
	Location           string   `json:"location" label:"Location" validate:"required,min=2"`
	Skills             []string `json:"skills" label:"Skills" validate:"min=1,dive,required"`
	WorkType           string   `json:"workType" label:"Work type" validate:"required,oneof=Remote Hybrid Onsite"`
	ScreeningQuestions []string `json:"screeningQuestions" label:"Screening questions" validate:"max=5,dive,required"`
}

// Checkout is the plan selection form.
type Checkout struct {
	Plan string `json:"plan" label:"Plan" validate:"required,oneof=basic standard premium enterprise"`
}

// PaymentVerification carries the payment ids returned by the provider.
type PaymentVerification struct {
	PaymentID string `json:"paymentId" label:"Payment ID" validate:"required"`
	PayerID   string `json:"payerId" label:"Payer ID" validate:"required"`
}

// FieldErrors maps a field's JSON name to its message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return strings.Join(parts, "; ")
}

// Err wraps the field errors as a coded validation error.
func (fe FieldErrors) Err() *errors.PortalError {
	return errors.Wrap(errors.ErrCodeValidationFailed, "invalid input", fe)
}

// FieldsOf extracts FieldErrors from err.
func FieldsOf(err error) (FieldErrors, bool) {
	var fe FieldErrors
	ok := stderrors.As(err, &fe)
	return fe, ok
}

const passwordMessage = "Password must be 8+ characters with uppercase, lowercase, number, and special character"

// messages override the generic text for specific field/tag pairs.
var messages = map[string]string{
	"email.email":                 "Invalid email format",
	"skills.min":                  "At least one skill is required",
	"skills.required":             "At least one skill is required",
	"workType.required":           "Please select a work type",
	"workType.oneof":              "Please select a work type",
	"screeningQuestions.max":      "Maximum 5 screening questions allowed",
	"screeningQuestions.required": "Each screening question must be a non-empty string",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks v (a pointer to one of the form structs). Leading and
// trailing whitespace is not trimmed; callers trim what they send.
func Validate(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	labels := labelsOf(v)
	out := make(FieldErrors)
	for _, e := range verrs {
		field := e.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, labels[field], e)
	}
	return out
}

func message(field, label string, e validator.FieldError) string {
	if m, ok := messages[field+"."+e.Tag()]; ok {
		return m
	}
	if label == "" {
		label = field
	}
	switch e.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "strongpassword":
		return passwordMessage
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", label, e.Param())
		}
		return fmt.Sprintf("%s needs at least %s entries", label, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", label, e.Param())
		}
		return fmt.Sprintf("%s allows at most %s entries", label, e.Param())
	case "numeric":
		return label + " must be numeric"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return label + " is invalid"
	}
}

// labelsOf maps JSON field names to their display labels.
func labelsOf(v any) map[string]string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	labels := make(map[string]string)
	if t.Kind() != reflect.Struct {
		return labels
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = f.Name
		}
		labels[name] = f.Tag.Get("label")
	}
	return labels
}

// StrongPassword reports whether pw has at least 8 characters drawn from
// letters, digits and @$!%*?&, with at least one of each class.
func StrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// SplitList turns a comma separated string into trimmed, non-empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
