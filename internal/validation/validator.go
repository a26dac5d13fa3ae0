package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// reject postal codes that are only whitespace; the eligibility check
	// trims before matching, so "  " would otherwise slip through required
	v.RegisterStructValidation(shippingAddressStructValidation, ShippingAddress{})

	return v
}

func shippingAddressStructValidation(sl validatorv10.StructLevel) {
	addr := sl.Current().Interface().(ShippingAddress)
	if strings.TrimSpace(addr.PostalCode) == "" {
		sl.ReportError(addr.PostalCode, "postal_code", "PostalCode", "postal_code_blank", "")
	}
}
