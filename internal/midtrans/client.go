// Package midtrans is a thin client for the Midtrans Snap API: transaction
// creation and verification of the asynchronous HTTP notifications the
// gateway posts back.
package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/moodlab/storefront-orders/internal/orders"
)

const (
	sandboxBaseURL    = "https://app.sandbox.midtrans.com"
	productionBaseURL = "https://app.midtrans.com"
)

// Client talks to the Snap API with server-key basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serverKey  string
}

// NewClient builds a Snap client. timeout bounds every request; callers may
// additionally pass a shorter-lived context.
func NewClient(serverKey string, production bool, timeout time.Duration) *Client {
	base := sandboxBaseURL
	if production {
		base = productionBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		serverKey:  serverKey,
	}
}

// TransactionRequest carries everything Snap needs to open a payment session.
type TransactionRequest struct {
	OrderID       string
	GrossAmount   int64
	Items         []orders.LineItem
	CustomerName  string
	CustomerEmail string
}

// Session is the payable artifact returned by Snap: a token for the embedded
// popup and a hosted redirect URL.
type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type snapCustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email"`
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	ItemDetails        []snapItemDetail       `json:"item_details"`
	CustomerDetails    snapCustomerDetails    `json:"customer_details"`
}

type snapErrorResponse struct {
	ErrorMessages []string `json:"error_messages"`
}

// CreateTransaction opens a Snap payment session for the given order.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*Session, error) {
	items := make([]snapItemDetail, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, snapItemDetail{
			ID:       it.ProductID,
			Price:    it.UnitPrice,
			Quantity: it.Quantity,
			Name:     it.Name,
		})
	}

	body := snapRequest{
		TransactionDetails: snapTransactionDetails{
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount,
		},
		ItemDetails: items,
		CustomerDetails: snapCustomerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal snap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/snap/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build snap request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	// Snap uses basic auth with the server key as username and empty password.
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("snap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr snapErrorResponse
		if derr := json.NewDecoder(resp.Body).Decode(&apiErr); derr == nil && len(apiErr.ErrorMessages) > 0 {
			return nil, fmt.Errorf("snap rejected transaction (%d): %s", resp.StatusCode, strings.Join(apiErr.ErrorMessages, "; "))
		}
		return nil, fmt.Errorf("snap rejected transaction: status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode snap response: %w", err)
	}
	if session.Token == "" {
		return nil, fmt.Errorf("snap response missing token")
	}
	return &session, nil
}
