package receipts

import "github.com/moodlab/storefront-orders/internal/orders"

// Job is the payload published to the receipt queue when an order transitions
// to paid. It snapshots everything the email needs so the worker never has to
// read the orders table.
type Job struct {
	OrderID     string            `json:"order_id"`
	Email       string            `json:"email"`
	Name        string            `json:"name,omitempty"`
	TotalAmount int64             `json:"total_amount"`
	Items       []orders.LineItem `json:"items"`
}
