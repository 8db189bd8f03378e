package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/internal/payment/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

const staleBatch = 100

type InitiateRequest struct {
	Phone   string
	Amount  decimal.Decimal
	OrderID string
}

type InitiateResult struct {
	Attempt domain.Attempt
	Ack     PushAck
}

type Service struct {
	log         *slog.Logger
	repo        AttemptRepository
	gateway     Gateway
	orders      Orders
	dedupe      Deduper
	recorder    Recorder
	countryCode string
	expiry      time.Duration
	now         func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithCountryCode(code string) Option { return func(s *Service) { s.countryCode = code } }

func WithExpiry(d time.Duration) Option { return func(s *Service) { s.expiry = d } }

func NewService(log *slog.Logger, repo AttemptRepository, gateway Gateway, orders Orders, dedupe Deduper, opts ...Option) *Service {
	s := &Service{
		log:         log,
		repo:        repo,
		gateway:     gateway,
		orders:      orders,
		dedupe:      dedupe,
		recorder:    nopRecorder{},
		countryCode: "254",
		expiry:      15 * time.Minute,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate validates the request, persists a processing attempt and sends
// the STK push. Validation happens before any network call.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if strings.TrimSpace(req.Phone) == "" || !req.Amount.IsPositive() {
		return InitiateResult{}, apperr.Validation("Phone and amount are required!", "phone", "amount")
	}
	phone, err := domain.NormalizePhone(req.Phone, s.countryCode)
	if err != nil {
		return InitiateResult{}, apperr.Validation("Invalid phone number", "phone")
	}
	if req.OrderID != "" {
		if err := s.orders.OrderExists(ctx, req.OrderID); err != nil {
			return InitiateResult{}, err
		}
	}

	attempt := domain.NewAttempt(uuid.NewString(), req.OrderID, phone, req.Amount, s.now())
	if err := s.repo.Create(ctx, attempt); err != nil {
		return InitiateResult{}, apperr.Internal(fmt.Errorf("create payment attempt: %w", err))
	}
	log := s.log.With("attempt_id", attempt.ID, "order_id", req.OrderID)

	ack, err := s.gateway.STKPush(ctx, PushRequest{Phone: phone, Amount: attempt.GatewayAmount()})
	if err != nil {
		s.recorder.PaymentInitiated(initiationResult(err))
		s.reject(ctx, attempt.ID, err)
		log.WarnContext(ctx, "stk push failed", "err", err)
		return InitiateResult{}, err
	}

	attempt, err = s.repo.UpdateByID(ctx, attempt.ID, func(a *domain.Attempt) (*outbox.Message, error) {
		if err := a.Accept(ack.MerchantRequestID, ack.CheckoutRequestID, s.now()); err != nil {
			return nil, err
		}
		return message(ctx, a.ID, domain.EventPaymentInitiated, domain.PaymentInitiated{
			AttemptID:         a.ID,
			OrderID:           a.OrderID,
			Phone:             a.Phone,
			Amount:            a.Amount,
			CheckoutRequestID: a.CheckoutRequestID,
		})
	})
	if err != nil {
		return InitiateResult{}, apperr.Internal(fmt.Errorf("record stk acknowledgment: %w", err))
	}
	s.recorder.PaymentInitiated("accepted")

	if req.OrderID != "" {
		if err := s.orders.MarkPaymentPending(ctx, req.OrderID); err != nil {
			log.ErrorContext(ctx, "mark order payment pending failed", "err", err)
		}
	}
	log.InfoContext(ctx, "stk push accepted", "checkout_request_id", ack.CheckoutRequestID)
	return InitiateResult{Attempt: attempt, Ack: ack}, nil
}

func (s *Service) reject(ctx context.Context, id string, cause error) {
	reason := "gateway_error"
	if e, ok := apperr.As(cause); ok {
		reason = e.Code
	}
	_, err := s.repo.UpdateByID(ctx, id, func(a *domain.Attempt) (*outbox.Message, error) {
		if err := a.Reject(reason, s.now()); err != nil {
			return nil, err
		}
		return s.outcome(ctx, *a)
	})
	if err != nil {
		s.log.ErrorContext(ctx, "mark payment attempt failed", "attempt_id", id, "err", err)
	}
}

func (s *Service) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Attempt{}, apperr.NotFound("Payment not found")
	}
	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Attempt{}, apperr.NotFound("Payment not found")
	}
	if err != nil {
		return domain.Attempt{}, apperr.Internal(err)
	}
	return a, nil
}

// CallbackKey is the dedupe key for a gateway callback.
func CallbackKey(checkoutRequestID string) string {
	return "mpesa:callback:" + checkoutRequestID
}

// HandleCallback finalises the attempt the callback refers to. Redeliveries
// and callbacks for attempts that are already final change nothing. A
// callback for a checkout request that is not recorded yet fails so the
// gateway delivers it again.
func (s *Service) HandleCallback(ctx context.Context, cb domain.CallbackResult) error {
	if cb.CheckoutRequestID == "" {
		return apperr.Validation("Missing CheckoutRequestID", "CheckoutRequestID")
	}
	log := s.log.With("checkout_request_id", cb.CheckoutRequestID)

	key := CallbackKey(cb.CheckoutRequestID)
	seen, err := s.dedupe.Seen(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "callback dedupe unavailable", "err", err)
	} else if seen {
		log.InfoContext(ctx, "duplicate callback skipped")
		return nil
	}

	a, err := s.repo.UpdateByCheckoutID(ctx, cb.CheckoutRequestID, func(a *domain.Attempt) (*outbox.Message, error) {
		if err := a.Complete(cb, s.now()); err != nil {
			return nil, err
		}
		return s.outcome(ctx, *a)
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyFinal):
		log.InfoContext(ctx, "callback for final attempt ignored")
		return nil
	case errors.Is(err, domain.ErrNotFound):
		// the acknowledgment may not be recorded yet; the gateway redelivers on 5xx
		log.WarnContext(ctx, "callback for unknown checkout request")
		s.release(ctx, key)
		return apperr.Internal(fmt.Errorf("checkout request %s not recorded", cb.CheckoutRequestID))
	case err != nil:
		s.release(ctx, key)
		return apperr.Internal(fmt.Errorf("apply callback: %w", err))
	}
	s.recorder.PaymentFinished(string(a.Status))
	log.InfoContext(ctx, "payment finished", "attempt_id", a.ID, "status", a.Status, "result_code", cb.ResultCode)
	return nil
}

func (s *Service) release(ctx context.Context, key string) {
	if err := s.dedupe.Release(ctx, key); err != nil {
		s.log.WarnContext(ctx, "release callback key failed", "key", key, "err", err)
	}
}

// ExpireStale expires attempts that have been processing for longer than
// the configured expiry and returns how many it expired.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.repo.ListStale(ctx, s.now().Add(-s.expiry), staleBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		_, err := s.repo.UpdateByID(ctx, id, func(a *domain.Attempt) (*outbox.Message, error) {
			if err := a.Expire(s.now()); err != nil {
				return nil, err
			}
			return s.outcome(ctx, *a)
		})
		switch {
		case errors.Is(err, domain.ErrAlreadyFinal):
			continue
		case err != nil:
			return expired, fmt.Errorf("expire attempt %s: %w", id, err)
		}
		expired++
		s.recorder.PaymentFinished(string(domain.StatusExpired))
	}
	if expired > 0 {
		s.log.InfoContext(ctx, "expired stale payment attempts", "count", expired)
	}
	return expired, nil
}

func (s *Service) outcome(ctx context.Context, a domain.Attempt) (*outbox.Message, error) {
	typ, payload := a.OutcomeEvent()
	return message(ctx, a.ID, typ, payload)
}

func message(ctx context.Context, id, eventType string, v any) (*outbox.Message, error) {
	m, err := outbox.NewMessage(ctx, domain.AggregateType, id, eventType, v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func initiationResult(err error) string {
	if apperr.KindOf(err) == apperr.KindUpstreamGateway || apperr.KindOf(err) == apperr.KindUpstreamAuth {
		return "rejected"
	}
	return "error"
}

type nopRecorder struct{}

func (nopRecorder) PaymentInitiated(string) {}
func (nopRecorder) PaymentFinished(string)  {}
