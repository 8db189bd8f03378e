package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

const orderNumberAttempts = 3

const duplicateMessage = "An order with these details already exists. Proceed to create a new one."

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	recorder Recorder
	now      func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(log *slog.Logger, repo OrderRepository, opts ...Option) *Service {
	s := &Service{
		log:      log,
		repo:     repo,
		recorder: nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates o, runs the duplicate guard and persists it in
// Processing with a fresh order number.
func (s *Service) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if err := o.Validate(); err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	o.ID = uuid.NewString()
	o.Email = strings.TrimSpace(o.Email)
	o.Phone = strings.TrimSpace(o.Phone)
	o.Status = domain.StatusProcessing
	o.PaymentStatus = domain.PaymentUnpaid
	o.CreatedAt = now
	o.UpdatedAt = now

	for attempt := 1; ; attempt++ {
		number, err := domain.NewOrderNumber(now, nil)
		if err != nil {
			return domain.Order{}, apperr.Internal(err)
		}
		o.OrderNumber = number

		event, err := outbox.NewMessage(ctx, domain.AggregateType, o.ID, domain.EventOrderCreated, domain.OrderCreated{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Email:       o.Email,
			TotalAmount: o.TotalAmount,
			PaymentTime: o.PaymentTime,
			Items:       o.Items,
		})
		if err != nil {
			return domain.Order{}, apperr.Internal(err)
		}

		err = s.repo.CreateWithOutbox(ctx, o, event)
		var dup *domain.DuplicateError
		switch {
		case err == nil:
			s.recorder.OrderCreated()
			s.log.InfoContext(ctx, "order created", "order_id", o.ID, "order_number", o.OrderNumber)
			return o, nil
		case errors.As(err, &dup):
			s.recorder.DuplicateOrder()
			return domain.Order{}, apperr.Conflict("duplicate_order", duplicateMessage).
				WithDetail("existingOrder", map[string]string{
					"orderNumber": dup.Existing.OrderNumber,
					"id":          dup.Existing.ID,
				})
		case errors.Is(err, domain.ErrOrderNumberTaken) && attempt < orderNumberAttempts:
			s.log.WarnContext(ctx, "order number collision, regenerating", "order_number", number, "attempt", attempt)
		default:
			return domain.Order{}, apperr.Internal(fmt.Errorf("create order: %w", err))
		}
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, apperr.Validation("Order ID is required", "id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperr.NotFound("Order not found")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, mapRepoErr(err)
	}
	return o, nil
}

// ListOrders returns the orders placed with email, newest first. userID is
// required by the route but not used to filter.
func (s *Service) ListOrders(ctx context.Context, userID, email string) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(email) == "" {
		return nil, apperr.Validation("Missing userId or user email", "userId", "email")
	}
	orders, err := s.repo.ListByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpdateStatus is the fulfillment transition. Moving an order to the status
// it already has changes nothing.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperr.NotFound("Order not found")
	}
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) (*outbox.Message, error) {
		from := o.Status
		changed, err := o.TransitionTo(next, s.now())
		if err != nil || !changed {
			return nil, err
		}
		return s.event(ctx, o.ID, domain.EventOrderStatusChanged, domain.OrderStatusChanged{OrderID: o.ID, From: from, To: next})
	})
	if err != nil {
		return domain.Order{}, mapRepoErr(err)
	}
	s.log.InfoContext(ctx, "order status updated", "order_id", id, "status", o.Status)
	return o, nil
}

// OrderExists is used by the payment context to link an attempt to an order.
func (s *Service) OrderExists(ctx context.Context, id string) error {
	_, err := s.GetOrder(ctx, id)
	return err
}

// MarkPaymentPending records that a payment prompt was sent for the order.
func (s *Service) MarkPaymentPending(ctx context.Context, id string) error {
	_, err := s.setPaymentStatus(ctx, id, "", func(o *domain.Order) domain.PaymentStatus {
		if o.PaymentStatus == domain.PaymentPaid {
			return o.PaymentStatus
		}
		return domain.PaymentPending
	})
	return err
}

// ApplyPaymentOutcome records a finished payment attempt. An attempt that
// expired cancels the order if it is still unpaid and Processing.
func (s *Service) ApplyPaymentOutcome(ctx context.Context, id string, outcome domain.PaymentOutcome) error {
	o, err := s.setPaymentStatus(ctx, id, outcome.Reason, func(o *domain.Order) domain.PaymentStatus {
		switch {
		case o.PaymentStatus == domain.PaymentPaid:
			return o.PaymentStatus
		case outcome.Succeeded:
			return domain.PaymentPaid
		default:
			return domain.PaymentFailed
		}
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "payment outcome applied", "order_id", id, "attempt_id", outcome.AttemptID,
		"payment_status", o.PaymentStatus, "status", o.Status)
	return nil
}

func (s *Service) setPaymentStatus(ctx context.Context, id, reason string, next func(*domain.Order) domain.PaymentStatus) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperr.NotFound("Order not found")
	}
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) (*outbox.Message, error) {
		from := o.PaymentStatus
		to := next(o)
		if from == to {
			return nil, nil
		}
		now := s.now()
		o.PaymentStatus = to
		o.UpdatedAt = now
		if reason == domain.ReasonExpired && to == domain.PaymentFailed && o.Status == domain.StatusProcessing {
			if _, err := o.TransitionTo(domain.StatusCancelled, now); err != nil {
				return nil, err
			}
		}
		return s.event(ctx, o.ID, domain.EventOrderPaymentStatus, domain.OrderPaymentStatusChanged{
			OrderID: o.ID, From: from, To: to, Reason: reason,
		})
	})
	if err != nil {
		return domain.Order{}, mapRepoErr(err)
	}
	return o, nil
}

func (s *Service) event(ctx context.Context, id, eventType string, v any) (*outbox.Message, error) {
	m, err := outbox.NewMessage(ctx, domain.AggregateType, id, eventType, v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("Order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperr.Conflict("invalid_transition", err.Error())
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()   {}
func (nopRecorder) DuplicateOrder() {}
