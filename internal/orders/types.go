package orders

import "time"

// GatewayMidtrans tags orders produced by the Midtrans Snap integration.
const GatewayMidtrans = "midtrans"

// Status is the canonical payment status of an order. Fulfillment state is a
// separate concern and deliberately not modeled here.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusExpired
}

// Valid reports whether s is one of the four canonical values.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// LineItem is a purchased product snapshot. Prices are whole rupiah, matching
// the gross_amount the gateway expects.
type LineItem struct {
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	Name      string `dynamodbav:"name" json:"name"`
	UnitPrice int64  `dynamodbav:"unit_price" json:"unit_price"`
	Quantity  int    `dynamodbav:"quantity" json:"quantity"`
}

// Order is the item stored in the orders DynamoDB table. Purchaser fields are
// a snapshot taken at creation time, not a live reference.
type Order struct {
	OrderID            string     `dynamodbav:"order_id" json:"order_id"` // PK
	UserID             string     `dynamodbav:"user_id" json:"user_id"`
	UserName           string     `dynamodbav:"user_name,omitempty" json:"user_name,omitempty"`
	UserEmail          string     `dynamodbav:"user_email" json:"user_email"`
	Items              []LineItem `dynamodbav:"items" json:"items"`
	TotalAmount        int64      `dynamodbav:"total_amount" json:"total_amount"`
	Status             Status     `dynamodbav:"status" json:"status"`
	PaymentGateway     string     `dynamodbav:"payment_gateway" json:"payment_gateway"`
	PaymentToken       string     `dynamodbav:"payment_token,omitempty" json:"payment_token,omitempty"`
	PaymentRedirectURL string     `dynamodbav:"payment_redirect_url,omitempty" json:"payment_redirect_url,omitempty"`
	PaymentDetails     string     `dynamodbav:"payment_details,omitempty" json:"payment_details,omitempty"` // last raw gateway payload
	CreatedAt          time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// Total sums unit_price * quantity over items.
func Total(items []LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.UnitPrice * int64(it.Quantity)
	}
	return sum
}
