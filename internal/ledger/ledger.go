// Package ledger owns the order lifecycle: creation at checkout, gateway
// orchestration, and reconciliation of asynchronous payment notifications.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/identity"
	"github.com/moodlab/storefront-orders/internal/metrics"
	"github.com/moodlab/storefront-orders/internal/midtrans"
	"github.com/moodlab/storefront-orders/internal/orders"
	"github.com/moodlab/storefront-orders/internal/receipts"
	"github.com/moodlab/storefront-orders/internal/reconcile"
)

// Store is the order persistence surface the ledger needs.
type Store interface {
	Create(ctx context.Context, o orders.Order) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	ApplyStatus(ctx context.Context, orderID string, expected, next orders.Status, paymentDetails string) error
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

// Gateway creates a payment session for an order.
type Gateway interface {
	CreateTransaction(ctx context.Context, req midtrans.TransactionRequest) (*midtrans.Session, error)
}

// ReceiptPublisher enqueues a receipt job. Failures are logged and dropped;
// they never affect the status write.
type ReceiptPublisher interface {
	Publish(ctx context.Context, job receipts.Job) error
}

// Config carries the ledger's tunables.
type Config struct {
	MidtransServerKey string
	GatewayTimeout    time.Duration
}

// casAttempts bounds the re-read loop when a conditional status write loses a
// race with a concurrent notification.
const casAttempts = 3

// Ledger implements checkout and notification reconciliation.
type Ledger struct {
	cfg      Config
	store    Store
	gateway  Gateway
	receipts ReceiptPublisher
	metrics  *metrics.Recorder
	logger   *zap.Logger
	nowFunc  func() time.Time
	newID    func() string
}

// New wires a Ledger. receipts and rec may be nil (no receipt queue / no
// metrics), logger must not be.
func New(cfg Config, store Store, gateway Gateway, rcpt ReceiptPublisher, rec *metrics.Recorder, logger *zap.Logger) *Ledger {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return &Ledger{
		cfg:      cfg,
		store:    store,
		gateway:  gateway,
		receipts: rcpt,
		metrics:  rec,
		logger:   logger,
		nowFunc:  time.Now,
		newID:    func() string { return "ord-" + uuid.NewString() },
	}
}

// Cart is a validated checkout request: items plus the client-computed total,
// which must agree with the items.
type Cart struct {
	Items       []orders.LineItem
	TotalAmount int64
}

// CheckoutResult is returned to the client to drive the payment UI.
type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CreateOrder validates the cart, opens a gateway payment session under a
// bounded timeout, and persists the order only after the gateway call
// succeeded. A gateway failure therefore never leaves a stranded pending
// order; the caller retries with a fresh order id.
func (l *Ledger) CreateOrder(ctx context.Context, ident identity.Identity, cart Cart) (*CheckoutResult, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range cart.Items {
		if it.UnitPrice <= 0 || it.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s", ErrBadLineItem, it.ProductID)
		}
	}
	if ident.Email == "" {
		return nil, ErrMissingEmail
	}

	total := orders.Total(cart.Items)
	if cart.TotalAmount != 0 && cart.TotalAmount != total {
		return nil, fmt.Errorf("%w: claimed %d, items sum %d", ErrTotalMismatch, cart.TotalAmount, total)
	}

	orderID := l.newID()

	gctx, cancel := context.WithTimeout(ctx, l.cfg.GatewayTimeout)
	defer cancel()

	session, err := l.gateway.CreateTransaction(gctx, midtrans.TransactionRequest{
		OrderID:       orderID,
		GrossAmount:   total,
		Items:         cart.Items,
		CustomerName:  ident.Name,
		CustomerEmail: ident.Email,
	})
	if err != nil {
		l.logger.Error("gateway transaction failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	now := l.nowFunc().UTC()
	order := orders.Order{
		OrderID:            orderID,
		UserID:             ident.UserID,
		UserName:           ident.Name,
		UserEmail:          ident.Email,
		Items:              cart.Items,
		TotalAmount:        total,
		Status:             orders.StatusPending,
		PaymentGateway:     orders.GatewayMidtrans,
		PaymentToken:       session.Token,
		PaymentRedirectURL: session.RedirectURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := l.store.Create(ctx, order); err != nil {
		// The gateway session exists but the local record does not; the
		// session is recoverable by order id, so surface and let the caller
		// retry checkout.
		return nil, fmt.Errorf("persist order: %w", err)
	}

	l.metrics.Count(ctx, metrics.MetricOrderCreated)
	l.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("user_id", ident.UserID),
		zap.Int64("total_amount", total))

	return &CheckoutResult{
		OrderID:     orderID,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
	}, nil
}

// ApplyPaymentNotification verifies and reconciles an asynchronous gateway
// notification. Safe under duplicate and out-of-order delivery: terminal
// states absorb everything as no-ops, and the conditional write serializes
// concurrent deliveries for the same order.
func (l *Ledger) ApplyPaymentNotification(ctx context.Context, raw []byte) error {
	n, err := midtrans.ParseNotification(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}

	if err := n.VerifySignature(l.cfg.MidtransServerKey); err != nil {
		l.metrics.Count(ctx, metrics.MetricSignatureRejected)
		l.logger.Warn("notification signature rejected",
			zap.String("order_id", n.OrderID))
		return err
	}

	next := reconcile.ResolveStatus(n.TransactionStatus, n.FraudStatus)

	for attempt := 0; attempt < casAttempts; attempt++ {
		order, err := l.store.Get(ctx, n.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil {
			// Persist-after-gateway-success should make this impossible, so
			// it is an operational alarm, not a benign race.
			l.metrics.Count(ctx, metrics.MetricOrderNotFound)
			l.logger.Error("notification for unknown order",
				zap.String("order_id", n.OrderID),
				zap.String("transaction_status", n.TransactionStatus))
			return ErrOrderNotFound
		}

		decision, err := reconcile.Apply(order.Status, next)
		if err != nil {
			return err
		}
		if !decision.Apply {
			l.metrics.Count(ctx, metrics.MetricNotificationIgnored)
			l.logger.Info("notification ignored",
				zap.String("order_id", n.OrderID),
				zap.String("status", string(order.Status)),
				zap.String("transaction_status", n.TransactionStatus))
			return nil
		}

		err = l.store.ApplyStatus(ctx, order.OrderID, order.Status, decision.Status, string(raw))
		if errors.Is(err, orders.ErrStatusMismatch) {
			// Lost the race with a concurrent delivery; re-read and
			// re-evaluate rather than blindly retrying the write.
			continue
		}
		if err != nil {
			return fmt.Errorf("apply status: %w", err)
		}

		l.metrics.Count(ctx, metrics.MetricNotificationApplied)
		l.logger.Info("order status applied",
			zap.String("order_id", order.OrderID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(decision.Status)))

		if decision.Status == orders.StatusPaid {
			l.publishReceipt(ctx, order)
		}
		return nil
	}

	return fmt.Errorf("apply status after %d attempts: %w", casAttempts, orders.ErrStatusMismatch)
}

// OrderHistory lists the purchaser's orders, newest first.
func (l *Ledger) OrderHistory(ctx context.Context, userID string) ([]orders.Order, error) {
	return l.store.ListByUser(ctx, userID)
}

// GetOrder fetches a single order, returning ErrOrderNotFound unless it
// exists and belongs to userID.
func (l *Ledger) GetOrder(ctx context.Context, userID, orderID string) (*orders.Order, error) {
	order, err := l.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (l *Ledger) publishReceipt(ctx context.Context, order *orders.Order) {
	if l.receipts == nil {
		return
	}
	job := receipts.Job{
		OrderID:     order.OrderID,
		Email:       order.UserEmail,
		Name:        order.UserName,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
	}
	if err := l.receipts.Publish(ctx, job); err != nil {
		l.logger.Warn("receipt publish failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}
