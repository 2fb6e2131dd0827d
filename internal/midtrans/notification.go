package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadSignature indicates the notification's signature_key did not match.
var ErrBadSignature = errors.New("notification signature mismatch")

// Notification is the asynchronous status payload Midtrans posts to the
// notification endpoint. Only the fields the reconciliation flow reads are
// declared; the raw payload is persisted verbatim for audit.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
}

// ParseNotification decodes a raw notification body.
func ParseNotification(raw []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if n.OrderID == "" {
		return nil, fmt.Errorf("notification missing order_id")
	}
	return &n, nil
}

// VerifySignature checks the documented Midtrans scheme:
// sha512(order_id + status_code + gross_amount + serverKey).
func (n *Notification) VerifySignature(serverKey string) error {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	got := strings.ToLower(n.SignatureKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrBadSignature
	}
	return nil
}
