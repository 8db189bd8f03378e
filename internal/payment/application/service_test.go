package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sofa-storefront/internal/payment/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/idempotency"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

type memRepo struct {
	mu       sync.Mutex
	attempts map[string]domain.Attempt
	events   []outbox.Message
}

func newMemRepo() *memRepo { return &memRepo{attempts: map[string]domain.Attempt{}} }

func (r *memRepo) Create(_ context.Context, a domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID] = a
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *memRepo) update(id string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	a, ok := r.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.ErrNotFound
	}
	ev, err := fn(&a)
	if err != nil {
		return domain.Attempt{}, err
	}
	r.attempts[id] = a
	if ev != nil {
		r.events = append(r.events, *ev)
	}
	return a, nil
}

func (r *memRepo) UpdateByID(_ context.Context, id string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(id, fn)
}

func (r *memRepo) UpdateByCheckoutID(_ context.Context, checkoutID string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.attempts {
		if a.CheckoutRequestID == checkoutID {
			return r.update(id, fn)
		}
	}
	return domain.Attempt{}, domain.ErrNotFound
}

func (r *memRepo) ListStale(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []domain.Attempt
	for _, a := range r.attempts {
		if a.Status == domain.StatusProcessing && a.CreatedAt.Before(cutoff) {
			stale = append(stale, a)
		}
	}
	slices.SortFunc(stale, func(a, b domain.Attempt) int { return a.CreatedAt.Compare(b.CreatedAt) })
	var ids []string
	for _, a := range stale[:min(limit, len(stale))] {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeGateway struct {
	calls []PushRequest
	err   error
	seq   int
}

func (g *fakeGateway) STKPush(_ context.Context, req PushRequest) (PushAck, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return PushAck{}, g.err
	}
	g.seq++
	id := "ws_CO_" + string(rune('0'+g.seq))
	return PushAck{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: id,
		ResponseCode:      "0",
		Raw:               json.RawMessage(`{"CheckoutRequestID":"` + id + `","ResponseCode":"0"}`),
	}, nil
}

type fakeOrders struct {
	known   map[string]bool
	pending []string
}

func (o *fakeOrders) OrderExists(_ context.Context, id string) error {
	if !o.known[id] {
		return apperr.NotFound("Order not found")
	}
	return nil
}

func (o *fakeOrders) MarkPaymentPending(_ context.Context, id string) error {
	o.pending = append(o.pending, id)
	return nil
}

type harness struct {
	svc     *Service
	repo    *memRepo
	gateway *fakeGateway
	orders  *fakeOrders
	clock   *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	h := &harness{
		repo:    newMemRepo(),
		gateway: &fakeGateway{},
		orders:  &fakeOrders{known: map[string]bool{"order-1": true}},
		clock:   &now,
	}
	h.svc = NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), h.repo, h.gateway, h.orders,
		idempotency.NewStore(rdb, time.Hour),
		WithClock(func() time.Time { return *h.clock }),
		WithExpiry(15*time.Minute))
	return h
}

func TestInitiateValidatesBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, req := range []InitiateRequest{
		{Phone: "", Amount: decimal.NewFromInt(100)},
		{Phone: "0712345678", Amount: decimal.Zero},
		{Phone: "0712345678", Amount: decimal.NewFromInt(-5)},
		{Phone: "call me", Amount: decimal.NewFromInt(5)},
	} {
		_, err := h.svc.Initiate(ctx, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Empty(t, h.gateway.calls)
	assert.Empty(t, h.repo.attempts)
}

func TestInitiateUnknownOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Initiate(context.Background(), InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(10), OrderID: "nope"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, h.gateway.calls)
}

func TestInitiateSuccess(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Initiate(context.Background(), InitiateRequest{
		Phone: "0712345678", Amount: decimal.RequireFromString("45000.40"), OrderID: "order-1",
	})
	require.NoError(t, err)

	require.Len(t, h.gateway.calls, 1)
	assert.Equal(t, PushRequest{Phone: "254712345678", Amount: 45001}, h.gateway.calls[0])
	assert.Equal(t, domain.StatusProcessing, res.Attempt.Status)
	assert.Equal(t, "ws_CO_1", res.Attempt.CheckoutRequestID)
	assert.JSONEq(t, `{"CheckoutRequestID":"ws_CO_1","ResponseCode":"0"}`, string(res.Ack.Raw))
	assert.Equal(t, []string{"order-1"}, h.orders.pending)
	assert.Equal(t, []string{domain.EventPaymentInitiated}, h.repo.eventTypes())
}

func TestInitiateGatewayFailureFailsAttempt(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = apperr.UpstreamGateway("stk_push_rejected", 400, errors.New("Invalid Access Token"))

	_, err := h.svc.Initiate(context.Background(), InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(10), OrderID: "order-1"})
	assert.Equal(t, apperr.KindUpstreamGateway, apperr.KindOf(err))
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	require.Len(t, h.repo.attempts, 1)
	for _, a := range h.repo.attempts {
		assert.Equal(t, domain.StatusFailed, a.Status)
		assert.Equal(t, "stk_push_rejected", a.ResultDesc)
	}
	assert.Empty(t, h.orders.pending)
	assert.Equal(t, []string{domain.EventPaymentFailed}, h.repo.eventTypes())
}

func TestHandleCallbackFinalisesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.Initiate(ctx, InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(10), OrderID: "order-1"})
	require.NoError(t, err)

	cb := domain.CallbackResult{CheckoutRequestID: res.Attempt.CheckoutRequestID, ResultCode: 0, ResultDesc: "The service request is processed successfully.", ReceiptNumber: "NLJ7RT61SV"}
	require.NoError(t, h.svc.HandleCallback(ctx, cb))
	require.NoError(t, h.svc.HandleCallback(ctx, cb))

	a, err := h.svc.GetAttempt(ctx, res.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, a.Status)
	assert.Equal(t, "NLJ7RT61SV", a.ReceiptNumber)
	assert.Equal(t, []string{domain.EventPaymentInitiated, domain.EventPaymentCompleted}, h.repo.eventTypes())
}

func TestHandleCallbackAfterDedupeKeyLossIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.Initiate(ctx, InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	cb := domain.CallbackResult{CheckoutRequestID: res.Attempt.CheckoutRequestID, ResultCode: 1032, ResultDesc: "Request cancelled by user"}
	require.NoError(t, h.svc.HandleCallback(ctx, cb))
	require.NoError(t, h.svc.dedupe.Release(ctx, CallbackKey(cb.CheckoutRequestID)))

	cb.ResultCode = 0
	require.NoError(t, h.svc.HandleCallback(ctx, cb))

	a, _ := h.svc.GetAttempt(ctx, res.Attempt.ID)
	assert.Equal(t, domain.StatusFailed, a.Status)
	assert.Equal(t, []string{domain.EventPaymentInitiated, domain.EventPaymentFailed}, h.repo.eventTypes())
}

func TestHandleCallbackUnknownCheckout(t *testing.T) {
	h := newHarness(t)
	err := h.svc.HandleCallback(context.Background(), domain.CallbackResult{CheckoutRequestID: "ws_CO_unknown"})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Empty(t, h.repo.eventTypes())

	err = h.svc.HandleCallback(context.Background(), domain.CallbackResult{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestHandleCallbackBeforeAcknowledgmentIsRedelivered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := domain.NewAttempt("8f14e45f-ceea-467f-a0e6-6c3a5f0b7c2d", "order-1", "254712345678", decimal.NewFromInt(10), *h.clock)
	require.NoError(t, h.repo.Create(ctx, a))

	cb := domain.CallbackResult{CheckoutRequestID: "ws_CO_early", ResultCode: 0, ResultDesc: "ok", ReceiptNumber: "NLJ7RT61SV"}
	err := h.svc.HandleCallback(ctx, cb)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = h.repo.UpdateByID(ctx, a.ID, func(a *domain.Attempt) (*outbox.Message, error) {
		return nil, a.Accept("29115-34620561-1", "ws_CO_early", *h.clock)
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.HandleCallback(ctx, cb))
	got, err := h.svc.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.Equal(t, "NLJ7RT61SV", got.ReceiptNumber)
	assert.Equal(t, []string{domain.EventPaymentCompleted}, h.repo.eventTypes())
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old, err := h.svc.Initiate(ctx, InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(10), OrderID: "order-1"})
	require.NoError(t, err)
	*h.clock = h.clock.Add(10 * time.Minute)
	fresh, err := h.svc.Initiate(ctx, InitiateRequest{Phone: "0712345678", Amount: decimal.NewFromInt(20)})
	require.NoError(t, err)
	*h.clock = h.clock.Add(6 * time.Minute)

	n, err := h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, _ := h.svc.GetAttempt(ctx, old.Attempt.ID)
	assert.Equal(t, domain.StatusExpired, a.Status)
	b, _ := h.svc.GetAttempt(ctx, fresh.Attempt.ID)
	assert.Equal(t, domain.StatusProcessing, b.Status)

	last := h.repo.events[len(h.repo.events)-1]
	assert.Equal(t, domain.EventPaymentFailed, last.Type)
	assert.JSONEq(t, `{"attemptId":"`+old.Attempt.ID+`","orderId":"order-1","reason":"expired"}`, string(last.Payload))

	// a callback arriving after expiry changes nothing
	require.NoError(t, h.svc.HandleCallback(ctx, domain.CallbackResult{CheckoutRequestID: old.Attempt.CheckoutRequestID}))
	a, _ = h.svc.GetAttempt(ctx, old.Attempt.ID)
	assert.Equal(t, domain.StatusExpired, a.Status)
}

func TestSweeperStopsWithContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(h.svc.log, h.svc, time.Millisecond).Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
