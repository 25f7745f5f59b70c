// Package foundation holds the generic validators shared by config and settings.
package foundation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// FieldError describes one rejected field. Field uses the dotted YAML or JSON
// path of the value.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (fe FieldError) Error() string {
	if fe.Field == "" {
		return fe.Message
	}
	return fe.Field + ": " + fe.Message
}

// ValidationResult is the outcome of a Validator. It passes when Errors is empty.
type ValidationResult struct {
	Errors []FieldError
}

func Valid() ValidationResult { return ValidationResult{} }

func Invalid(errs ...FieldError) ValidationResult { return ValidationResult{Errors: errs} }

func (vr ValidationResult) OK() bool { return len(vr.Errors) == 0 }

// Combine appends other's failures after vr's.
func (vr ValidationResult) Combine(other ValidationResult) ValidationResult {
	if other.OK() {
		return vr
	}
	return Invalid(append(vr.Errors[:len(vr.Errors):len(vr.Errors)], other.Errors...)...)
}

// ToError returns nil for a passing result. Otherwise it returns one
// validation error naming the first failed field and listing every failure.
func (vr ValidationResult) ToError() error {
	if vr.OK() {
		return nil
	}
	msgs := make([]string, len(vr.Errors))
	for i, fe := range vr.Errors {
		msgs[i] = fe.Error()
	}
	return errors.ValidationError(strings.Join(msgs, "; ")).
		WithContext("field", vr.Errors[0].Field).
		WithContext("code", vr.Errors[0].Code).
		Build()
}

// Validator checks one value.
type Validator[T any] func(T) ValidationResult

// ValidatorChain runs every validator; it does not stop at the first failure.
type ValidatorChain[T any] []Validator[T]

func NewValidatorChain[T any](validators ...Validator[T]) ValidatorChain[T] {
	return validators
}

func (vc ValidatorChain[T]) Validate(value T) ValidationResult {
	var res ValidationResult
	for _, v := range vc {
		res = res.Combine(v(value))
	}
	return res
}

// Field applies v to the part of T selected by get.
func Field[T, F any](get func(T) F, v Validator[F]) Validator[T] {
	return func(value T) ValidationResult { return v(get(value)) }
}

// check builds a single-field validator from a predicate.
func check[T any](field, code string, ok func(T) bool, msg func(T) string) Validator[T] {
	return func(value T) ValidationResult {
		if ok(value) {
			return Valid()
		}
		return Invalid(FieldError{Field: field, Code: code, Message: msg(value)})
	}
}

func OneOf[T comparable](field string, allowed []T) Validator[T] {
	set := make(map[T]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	return check(field, "one_of",
		func(v T) bool { return set[v] },
		func(v T) string { return fmt.Sprintf("%v is not one of %v", v, allowed) })
}

// IntRange accepts lo <= v <= hi.
func IntRange(field string, lo, hi int) Validator[int] {
	return check(field, "range",
		func(v int) bool { return v >= lo && v <= hi },
		func(v int) string { return fmt.Sprintf("%d is outside [%d, %d]", v, lo, hi) })
}

// NotBlank rejects strings that are empty after trimming.
func NotBlank(field string) Validator[string] {
	return check(field, "required",
		func(v string) bool { return strings.TrimSpace(v) != "" },
		func(string) string { return "must not be empty" })
}
