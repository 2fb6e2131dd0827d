package ledger

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/identity"
	"github.com/moodlab/storefront-orders/internal/midtrans"
	"github.com/moodlab/storefront-orders/internal/orders"
	"github.com/moodlab/storefront-orders/internal/receipts"
)

const testServerKey = "SB-Mid-server-testkey"

// --- fakes ---

type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]orders.Order
	writes   int
	applyErr []error // errors to return from ApplyStatus, consumed in order
	nowFunc  func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  map[string]orders.Order{},
		nowFunc: time.Now,
	}
}

func (s *fakeStore) Create(ctx context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.OrderID]; ok {
		return orders.ErrAlreadyExists
	}
	s.orders[o.OrderID] = o
	s.writes++
	return nil
}

func (s *fakeStore) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := o
	return &cp, nil
}

func (s *fakeStore) ApplyStatus(ctx context.Context, orderID string, expected, next orders.Status, paymentDetails string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.applyErr) > 0 {
		err := s.applyErr[0]
		s.applyErr = s.applyErr[1:]
		if err != nil {
			return err
		}
	}
	o, ok := s.orders[orderID]
	if !ok || o.Status != expected {
		return orders.ErrStatusMismatch
	}
	o.Status = next
	o.PaymentDetails = paymentDetails
	o.UpdatedAt = s.nowFunc().UTC()
	s.orders[orderID] = o
	s.writes++
	return nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeGateway struct {
	err     error
	session midtrans.Session
	reqs    []midtrans.TransactionRequest
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, req midtrans.TransactionRequest) (*midtrans.Session, error) {
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return nil, g.err
	}
	cp := g.session
	return &cp, nil
}

type fakePublisher struct {
	jobs []receipts.Job
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, job receipts.Job) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func newTestLedger(store *fakeStore, gw *fakeGateway, pub *fakePublisher) *Ledger {
	l := New(Config{
		MidtransServerKey: testServerKey,
		GatewayTimeout:    time.Second,
	}, store, gw, pub, nil, zap.NewNop())
	l.newID = func() string { return "ord-test-1" }
	return l
}

func testIdentity() identity.Identity {
	return identity.Identity{UserID: "u1", Name: "Rani", Email: "a@b.com", EmailVerified: true}
}

func testCart() Cart {
	return Cart{
		Items: []orders.LineItem{
			{ProductID: "p1", Name: "E-book", UnitPrice: 50000, Quantity: 2},
		},
		TotalAmount: 100000,
	}
}

func signedNotification(orderID, txStatus, fraudStatus string) []byte {
	statusCode := "200"
	grossAmount := "100000.00"
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
	sig := hex.EncodeToString(sum[:])
	fraud := ""
	if fraudStatus != "" {
		fraud = fmt.Sprintf(`"fraud_status": %q,`, fraudStatus)
	}
	return []byte(fmt.Sprintf(`{
		"order_id": %q,
		"status_code": %q,
		"gross_amount": %q,
		"transaction_status": %q,
		%s
		"signature_key": %q
	}`, orderID, statusCode, grossAmount, txStatus, fraud, sig))
}

// --- createOrder ---

func TestCreateOrder_PersistsAfterGatewaySuccess(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{session: midtrans.Session{Token: "tok-1", RedirectURL: "https://pay.example/tok-1"}}
	l := newTestLedger(store, gw, &fakePublisher{})

	res, err := l.CreateOrder(context.Background(), testIdentity(), testCart())
	require.NoError(t, err)
	assert.Equal(t, "ord-test-1", res.OrderID)
	assert.Equal(t, "tok-1", res.Token)

	o, err := store.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, int64(100000), o.TotalAmount)
	assert.Equal(t, "a@b.com", o.UserEmail)
	assert.Equal(t, "tok-1", o.PaymentToken)
	assert.Equal(t, orders.GatewayMidtrans, o.PaymentGateway)

	// gateway saw the same order id and gross amount
	require.Len(t, gw.reqs, 1)
	assert.Equal(t, res.OrderID, gw.reqs[0].OrderID)
	assert.Equal(t, int64(100000), gw.reqs[0].GrossAmount)
}

func TestCreateOrder_NoPersistOnGatewayFailure(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{err: errors.New("connection refused")}
	l := newTestLedger(store, gw, &fakePublisher{})

	_, err := l.CreateOrder(context.Background(), testIdentity(), testCart())
	assert.ErrorIs(t, err, ErrGateway)
	assert.Empty(t, store.orders)
	assert.Zero(t, store.writes)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{session: midtrans.Session{Token: "tok-1"}}
	l := newTestLedger(store, gw, &fakePublisher{})
	ctx := context.Background()

	_, err := l.CreateOrder(ctx, testIdentity(), Cart{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	ident := testIdentity()
	ident.Email = ""
	_, err = l.CreateOrder(ctx, ident, testCart())
	assert.ErrorIs(t, err, ErrMissingEmail)

	cart := testCart()
	cart.TotalAmount = 99999
	_, err = l.CreateOrder(ctx, testIdentity(), cart)
	assert.ErrorIs(t, err, ErrTotalMismatch)

	cart = testCart()
	cart.Items[0].Quantity = 0
	cart.TotalAmount = 0
	_, err = l.CreateOrder(ctx, testIdentity(), cart)
	assert.ErrorIs(t, err, ErrBadLineItem)

	// none of the rejected carts reached the gateway or the store
	assert.Empty(t, gw.reqs)
	assert.Zero(t, store.writes)
}

// --- applyPaymentNotification ---

func createPendingOrder(t *testing.T, l *Ledger, store *fakeStore) string {
	t.Helper()
	res, err := l.CreateOrder(context.Background(), testIdentity(), testCart())
	require.NoError(t, err)
	return res.OrderID
}

func TestApplyNotification_SettlementMarksPaid(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{session: midtrans.Session{Token: "tok-1"}}
	pub := &fakePublisher{}
	l := newTestLedger(store, gw, pub)
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)
	createdWrites := store.writes
	before, _ := store.Get(ctx, orderID)

	err := l.ApplyPaymentNotification(ctx, signedNotification(orderID, "settlement", ""))
	require.NoError(t, err)

	o, _ := store.Get(ctx, orderID)
	assert.Equal(t, orders.StatusPaid, o.Status)
	assert.False(t, o.UpdatedAt.Before(before.UpdatedAt))
	assert.NotEmpty(t, o.PaymentDetails)
	assert.Equal(t, createdWrites+1, store.writes)

	// paid transition fires exactly one receipt job
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, orderID, pub.jobs[0].OrderID)
	assert.Equal(t, "a@b.com", pub.jobs[0].Email)
}

func TestApplyNotification_ReplayIsNoOp(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)
	payload := signedNotification(orderID, "settlement", "")

	require.NoError(t, l.ApplyPaymentNotification(ctx, payload))
	writesAfterFirst := store.writes
	stateAfterFirst, _ := store.Get(ctx, orderID)

	require.NoError(t, l.ApplyPaymentNotification(ctx, payload))

	stateAfterSecond, _ := store.Get(ctx, orderID)
	assert.Equal(t, writesAfterFirst, store.writes, "replay must not write")
	assert.Equal(t, *stateAfterFirst, *stateAfterSecond)
}

func TestApplyNotification_OutOfOrderDelivery(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)

	require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(orderID, "settlement", "")))
	// stale pending arrives after the terminal settlement
	require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(orderID, "pending", "")))

	o, _ := store.Get(ctx, orderID)
	assert.Equal(t, orders.StatusPaid, o.Status)
}

func TestApplyNotification_CaptureFraudStatuses(t *testing.T) {
	cases := []struct {
		fraud string
		want  orders.Status
	}{
		{"accept", orders.StatusPaid},
		{"challenge", orders.StatusPending},
	}
	for _, tc := range cases {
		store := newFakeStore()
		l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
		ctx := context.Background()
		orderID := createPendingOrder(t, l, store)

		require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(orderID, "capture", tc.fraud)))
		o, _ := store.Get(ctx, orderID)
		assert.Equal(t, tc.want, o.Status, "fraud_status=%s", tc.fraud)
	}
}

func TestApplyNotification_BadSignature(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)
	writesBefore := store.writes

	payload := []byte(fmt.Sprintf(`{"order_id": %q, "status_code": "200", "gross_amount": "100000.00", "transaction_status": "settlement", "signature_key": "forged"}`, orderID))
	err := l.ApplyPaymentNotification(ctx, payload)
	assert.ErrorIs(t, err, midtrans.ErrBadSignature)

	o, _ := store.Get(ctx, orderID)
	assert.Equal(t, orders.StatusPending, o.Status, "no state change on signature failure")
	assert.Equal(t, writesBefore, store.writes)
}

func TestApplyNotification_UnknownOrder(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{}, &fakePublisher{})

	err := l.ApplyPaymentNotification(context.Background(), signedNotification("ord-missing", "settlement", ""))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestApplyNotification_Malformed(t *testing.T) {
	l := newTestLedger(newFakeStore(), &fakeGateway{}, &fakePublisher{})
	err := l.ApplyPaymentNotification(context.Background(), []byte(`{oops`))
	assert.ErrorIs(t, err, ErrMalformedNotification)
}

func TestApplyNotification_LostRaceReEvaluates(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)

	// Simulate a concurrent handler winning the CAS: our first write loses,
	// and by the time we re-read the order is already failed.
	store.applyErr = []error{orders.ErrStatusMismatch}
	o := store.orders[orderID]
	o.Status = orders.StatusFailed
	store.orders[orderID] = o

	err := l.ApplyPaymentNotification(ctx, signedNotification(orderID, "settlement", ""))
	require.NoError(t, err, "losing the race resolves to a no-op, not an error")

	got, _ := store.Get(ctx, orderID)
	assert.Equal(t, orders.StatusFailed, got.Status, "terminal state set by the winner must stand")
}

func TestApplyNotification_ReceiptFailureDoesNotFail(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("queue unavailable")}
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, pub)
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)
	require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(orderID, "settlement", "")))

	o, _ := store.Get(ctx, orderID)
	assert.Equal(t, orders.StatusPaid, o.Status)
}

// --- end to end ---

func TestEndToEndCheckoutAndSettlement(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{session: midtrans.Session{Token: "tok-1"}}
	pub := &fakePublisher{}
	l := newTestLedger(store, gw, pub)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.nowFunc = func() time.Time { return clock }
	store.nowFunc = func() time.Time { return clock }

	res, err := l.CreateOrder(ctx, identity.Identity{UserID: "u1", Email: "a@b.com"}, Cart{
		Items: []orders.LineItem{{ProductID: "p1", Name: "E-book", UnitPrice: 50000, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)

	o, _ := store.Get(ctx, res.OrderID)
	assert.Equal(t, int64(100000), o.TotalAmount)
	assert.Equal(t, orders.StatusPending, o.Status)

	clock = base.Add(time.Minute)
	require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(res.OrderID, "settlement", "")))

	o, _ = store.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusPaid, o.Status)
	assert.True(t, o.UpdatedAt.After(o.CreatedAt), "updatedAt must advance")

	writes := store.writes
	require.NoError(t, l.ApplyPaymentNotification(ctx, signedNotification(res.OrderID, "settlement", "")))
	o2, _ := store.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusPaid, o2.Status)
	assert.Equal(t, writes, store.writes, "second identical webhook records no write")
	assert.Len(t, pub.jobs, 1, "receipt fires once")
}

// --- history / lookup ---

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	store := newFakeStore()
	l := newTestLedger(store, &fakeGateway{session: midtrans.Session{Token: "tok-1"}}, &fakePublisher{})
	ctx := context.Background()

	orderID := createPendingOrder(t, l, store)

	got, err := l.GetOrder(ctx, "u1", orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, got.OrderID)

	_, err = l.GetOrder(ctx, "someone-else", orderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = l.GetOrder(ctx, "u1", "ord-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
