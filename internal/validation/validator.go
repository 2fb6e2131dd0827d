package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CheckoutRequest to ensure the
	// provided TotalAmount matches the sum of (unit_price * quantity).
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

// checkoutStructValidation verifies the aggregated total of items equals TotalAmount.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	var sum int64
	for _, it := range req.Items {
		sum += it.UnitPrice * int64(it.Quantity)
	}

	if sum != req.TotalAmount {
		sl.ReportError(req.TotalAmount, "total_amount", "TotalAmount", "total_match_items",
			fmt.Sprintf("items sum %d != total_amount %d", sum, req.TotalAmount))
	}
}
