package application

import (
	"context"

	"github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (domain.Product, error)
	// GetMany returns the products that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]domain.Product, error)
	// Create returns ErrSlugTaken when the slug is already used.
	Create(ctx context.Context, p domain.Product) error
}
