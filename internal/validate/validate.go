package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
)

var (
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// WhatsApp numbers: optional +, 8 to 15 digits, common separators allowed
	rePhone = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,20}[0-9]$`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New()
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = vv.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		_, ok := Email(fl.Field().String())
		return ok
	})
	_ = vv.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, ok := Phone(fl.Field().String())
		return ok
	})
	_ = vv.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return domain.OrderStatus(fl.Field().String()).IsValid()
	})
	_ = vv.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).IsValid()
	})
	return vv
}

// Struct runs the `validate` tags of dest. Failures become one Validation
// error naming the first failing field, with every field in the details.
func Struct(dest any) error {
	err := v.Struct(dest)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperr.Wrap(apperr.KindValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fe := range errs {
		details[fe.Field()] = message(fe)
	}
	first := errs[0].Field()
	return apperr.Validation("%s %s", first, details[first]).WithDetails(details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email", "basic_email":
		return "must be a valid email"
	case "phone":
		return "must be a valid WhatsApp number"
	case "order_status":
		return "must be one of pending, approved, declined, completed, cancelled"
	case "role":
		return "must be one of USER, ADMIN, SUPER_ADMIN"
	case "url":
		return "must be a URL"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a resource identifier taken from a path or body.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 100 {
		return "", false
	}
	return s, true
}

// Password needs 8 to 72 bytes with lower, upper, digit and symbol.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 72 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

// Status parses an order status, rejecting anything outside the enum.
func Status(s string) (domain.OrderStatus, error) {
	st, err := domain.ParseOrderStatus(strings.TrimSpace(s))
	if err != nil {
		return "", apperr.Validation("status must be one of pending, approved, declined, completed, cancelled")
	}
	return st, nil
}

// SortOrder reports whether the listing runs newest first; empty means desc.
func SortOrder(s string) (desc bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	}
	return false, apperr.Validation("sortOrder must be asc or desc")
}

// QueryInt parses an optional integer query parameter within [min, max].
func QueryInt(raw, key string, def, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be numeric", key).WithDetails(map[string]any{"field": key})
	}
	if n < min || n > max {
		return 0, apperr.Validation("%s out of range", key).WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return n, nil
}

// Sanitize trims s and caps it at maxLen bytes without splitting a rune.
func Sanitize(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
