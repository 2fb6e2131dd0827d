package validation

import "testing"

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		Items: []CartItem{
			{ProductID: "p1", Name: "E-book", UnitPrice: 50000, Quantity: 2},
		},
		TotalAmount: 100000,
	}
}

func TestCheckoutRequest_Valid(t *testing.T) {
	v := New()
	if err := v.Struct(validRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCheckoutRequest_TotalMismatch(t *testing.T) {
	v := New()
	req := validRequest()
	req.TotalAmount = 99999
	if err := v.Struct(req); err == nil {
		t.Fatalf("expected total_match_items violation")
	}
}

func TestCheckoutRequest_EmptyCart(t *testing.T) {
	v := New()
	req := CheckoutRequest{TotalAmount: 1000}
	if err := v.Struct(req); err == nil {
		t.Fatalf("expected validation failure for empty items")
	}
}

func TestCheckoutRequest_NonPositivePrice(t *testing.T) {
	v := New()
	req := validRequest()
	req.Items[0].UnitPrice = 0
	if err := v.Struct(req); err == nil {
		t.Fatalf("expected validation failure for zero unit_price")
	}
}

func TestCheckoutRequest_ZeroQuantity(t *testing.T) {
	v := New()
	req := validRequest()
	req.Items[0].Quantity = 0
	req.TotalAmount = 0
	if err := v.Struct(req); err == nil {
		t.Fatalf("expected validation failure for zero quantity")
	}
}
