package dto

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"game-economy-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("money", validateMoney)
		_ = v.RegisterValidation("money_non_negative", validateMoneyNonNegative)
		_ = v.RegisterValidation("signed_money", validateSignedMoney)
		_ = v.RegisterValidation("change_type", validateChangeType)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateMoney accepts a positive amount with at most two decimals.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := domain.ParseAmount(fl.Field().String())
	return err == nil && d.IsPositive()
}

func validateMoneyNonNegative(fl validator.FieldLevel) bool {
	d, err := domain.ParseAmount(fl.Field().String())
	return err == nil && !d.IsNegative()
}

// validateSignedMoney accepts any non-zero amount with at most two decimals.
func validateSignedMoney(fl validator.FieldLevel) bool {
	d, err := domain.ParseAmount(fl.Field().String())
	return err == nil && !d.IsZero()
}

func validateChangeType(fl validator.FieldLevel) bool {
	return domain.ChangeType(fl.Field().String()).Applicable()
}

// SanitizeStruct trims whitespace and drops control characters from every
// exported string field (including *string) of a struct pointer. Text is
// stored as sent otherwise; the audit log keeps reasons verbatim.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}
