// Package validate configures the input validator shared by the pickup and
// support managers. Validation failures are always the caller's fault and
// map to the VALIDATION error kind.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"greenloop/pkg/types"

	"github.com/go-playground/validator/v10"
)

// Philippine mobile numbers: 09XXXXXXXXX or +639XXXXXXXXX.
var mobileNumberRE = regexp.MustCompile(`^(09|\+639)\d{9}$`)

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	must(v.RegisterValidation("phmobile", func(fl validator.FieldLevel) bool {
		return mobileNumberRE.MatchString(fl.Field().String())
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(fmt.Errorf("register validation: %w", err))
	}
}

// Struct runs v against input and converts the first failure into a domain
// validation error with a readable field reference.
func Struct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("validate input: %w", err)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return types.NewValidationError("invalid %s: failed %q check", fieldName(fe), fe.Tag())
	}

	return types.NewValidationError("invalid input: %v", err)
}

func fieldName(fe validator.FieldError) string {
	// "ProposeInput.ContactNumber" -> "contact_number"
	name := fe.StructField()

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
