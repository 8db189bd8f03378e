package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmehra2102/sofa-storefront/internal/payment/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

type AttemptRepository interface {
	Create(ctx context.Context, a domain.Attempt) error
	Get(ctx context.Context, id string) (domain.Attempt, error)
	// UpdateByID and UpdateByCheckoutID lock the attempt, apply fn and store
	// the result with the event fn returns, if any.
	UpdateByID(ctx context.Context, id string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error)
	UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error)
	// ListStale returns ids of attempts still processing that were created
	// before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

type PushRequest struct {
	Phone  string
	Amount int64
}

// PushAck is the gateway's synchronous acknowledgment. Raw is relayed to the
// caller unchanged.
type PushAck struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
	Raw                 json.RawMessage
}

type Gateway interface {
	STKPush(ctx context.Context, req PushRequest) (PushAck, error)
}

// Orders is the order context as seen from payments.
type Orders interface {
	OrderExists(ctx context.Context, id string) error
	MarkPaymentPending(ctx context.Context, id string) error
}

type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Recorder interface {
	PaymentInitiated(result string)
	PaymentFinished(status string)
}
