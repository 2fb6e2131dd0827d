package validation

// CartItem is a single checkout line item. Prices are whole rupiah.
type CartItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"required,gt=0"` // price per unit
	Quantity  int    `json:"quantity" validate:"required,min=1"`  // must be >= 1
}

// CheckoutRequest is the payload for POST /checkout. It deliberately carries
// no purchaser fields; identity comes from the verified session only.
type CheckoutRequest struct {
	Items       []CartItem `json:"items" validate:"required,min=1,dive"` // at least one item
	TotalAmount int64      `json:"total_amount" validate:"required,gt=0"` // total the client computed
}
