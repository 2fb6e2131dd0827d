// Package reconcile holds the pure decision logic for merging asynchronous
// gateway status reports into an order's payment status. It performs no I/O;
// the ledger owns all reads and writes.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/moodlab/storefront-orders/internal/orders"
)

// Midtrans transaction_status values. capture additionally carries a fraud
// verdict (card payments); every other rail resolves directly.
const (
	txCapture    = "capture"
	txSettlement = "settlement"
	txPending    = "pending"
	txDeny       = "deny"
	txCancel     = "cancel"
	txExpire     = "expire"

	fraudAccept = "accept"
)

// ResolveStatus maps a (transaction_status, fraud_status) pair to the
// canonical order status. Unrecognized statuses resolve to pending: an order
// must never land in a terminal state off a payload we did not understand.
func ResolveStatus(transactionStatus, fraudStatus string) orders.Status {
	switch transactionStatus {
	case txCapture:
		if fraudStatus == fraudAccept {
			return orders.StatusPaid
		}
		// challenge, or an unknown fraud verdict
		return orders.StatusPending
	case txSettlement:
		return orders.StatusPaid
	case txPending:
		return orders.StatusPending
	case txDeny, txCancel:
		return orders.StatusFailed
	case txExpire:
		return orders.StatusExpired
	default:
		return orders.StatusPending
	}
}

// ErrInvalidStatus marks a stored status outside the canonical set. The
// caller surfaces it as a data-integrity fault; it is never coerced.
var ErrInvalidStatus = errors.New("order status outside canonical set")

// Decision is the reconciler's verdict on a proposed transition.
type Decision struct {
	Apply  bool
	Status orders.Status
}

// Apply enforces the forward-only lattice: a terminal current status absorbs
// everything as a no-op (including a re-delivery of the same terminal status,
// so retries never cost a write); pending accepts any proposed status.
func Apply(current, next orders.Status) (Decision, error) {
	if !current.Valid() {
		return Decision{}, fmt.Errorf("%w: %q", ErrInvalidStatus, current)
	}
	if current.Terminal() {
		return Decision{Apply: false, Status: current}, nil
	}
	return Decision{Apply: true, Status: next}, nil
}
