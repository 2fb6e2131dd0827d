package ledger

import "errors"

var (
	// ErrEmptyCart rejects a checkout with no line items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrBadLineItem rejects a non-positive unit price or quantity < 1.
	ErrBadLineItem = errors.New("line item has non-positive price or quantity")
	// ErrTotalMismatch rejects a claimed total that disagrees with the items.
	ErrTotalMismatch = errors.New("total amount does not match items")
	// ErrMissingEmail rejects a purchaser without a usable contact email.
	ErrMissingEmail = errors.New("purchaser email required")
	// ErrGateway wraps any payment-gateway call failure; no order is
	// persisted when it occurs.
	ErrGateway = errors.New("payment gateway failure")
	// ErrMalformedNotification marks a webhook body that could not be parsed.
	ErrMalformedNotification = errors.New("malformed payment notification")
	// ErrOrderNotFound marks a notification (or lookup) that references no
	// known order.
	ErrOrderNotFound = errors.New("order not found")
)
