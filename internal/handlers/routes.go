package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/identity"
	"github.com/moodlab/storefront-orders/internal/ledger"
	"github.com/moodlab/storefront-orders/internal/midtrans"
	"github.com/moodlab/storefront-orders/internal/orders"
	"github.com/moodlab/storefront-orders/internal/validation"
)

// HandlerConfig groups dependencies for the storefront routes.
type HandlerConfig struct {
	Ledger   *ledger.Ledger
	Identity *identity.Service
	Logger   *zap.Logger
}

// RegisterRoutes registers checkout, webhook and order-history routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	auth := identity.Middleware(cfg.Identity)

	r.POST("/checkout", auth, func(c *gin.Context) {
		ctx := c.Request.Context()

		ident, ok := identity.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		res, err := cfg.Ledger.CreateOrder(ctx, *ident, ledger.Cart{
			Items:       toLineItems(req.Items),
			TotalAmount: req.TotalAmount,
		})
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrGateway):
			// detail stays server-side; the client message must not leak
			// gateway internals
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment_unavailable"})
			return
		case errors.Is(err, ledger.ErrEmptyCart),
			errors.Is(err, ledger.ErrBadLineItem),
			errors.Is(err, ledger.ErrTotalMismatch),
			errors.Is(err, ledger.ErrMissingEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_checkout", "msg": err.Error()})
			return
		default:
			cfg.Logger.Error("checkout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed"})
			return
		}

		c.Header("Location", "/orders/"+res.OrderID)
		c.JSON(http.StatusCreated, res)
	})

	r.POST("/payments/midtrans/notification", func(c *gin.Context) {
		ctx := c.Request.Context()

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
			return
		}

		err = cfg.Ledger.ApplyPaymentNotification(ctx, raw)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		case errors.Is(err, ledger.ErrOrderNotFound):
			// Answer 200: a gateway retry cannot repair a missing order, and
			// the ledger has already raised the alarm.
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		case errors.Is(err, midtrans.ErrBadSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		case errors.Is(err, ledger.ErrMalformedNotification):
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_notification"})
		default:
			cfg.Logger.Error("notification handling failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "notification_failed"})
		}
	})

	r.GET("/orders", auth, func(c *gin.Context) {
		ident, ok := identity.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		list, err := cfg.Ledger.OrderHistory(c.Request.Context(), ident.UserID)
		if err != nil {
			cfg.Logger.Error("order history failed", zap.String("user_id", ident.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	})

	r.GET("/orders/:id", auth, func(c *gin.Context) {
		ident, ok := identity.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		order, err := cfg.Ledger.GetOrder(c.Request.Context(), ident.UserID, c.Param("id"))
		if errors.Is(err, ledger.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		if err != nil {
			cfg.Logger.Error("order lookup failed", zap.String("order_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
			return
		}
		c.JSON(http.StatusOK, order)
	})
}

func toLineItems(items []validation.CartItem) []orders.LineItem {
	out := make([]orders.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, orders.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return out
}
