package application

import (
	"context"

	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

type OrderRepository interface {
	// CreateWithOutbox runs the duplicate guard and inserts o together with
	// event, atomically. It returns *domain.DuplicateError when an existing
	// order covers o and domain.ErrOrderNumberTaken on a number collision.
	CreateWithOutbox(ctx context.Context, o domain.Order, event outbox.Message) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	// Update locks the order, applies fn and stores the result together with
	// the event fn returns, if any.
	Update(ctx context.Context, id string, fn func(*domain.Order) (*outbox.Message, error)) (domain.Order, error)
}

type Recorder interface {
	OrderCreated()
	DuplicateOrder()
}
