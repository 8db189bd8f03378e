package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/sofa-storefront/internal/cart/domain"
	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

// Store persists carts by id.
type Store interface {
	Create(ctx context.Context, c domain.Cart) error
	Get(ctx context.Context, id string) (domain.Cart, error)
	// Update applies fn to the stored cart atomically.
	Update(ctx context.Context, id string, fn func(*domain.Cart) error) (domain.Cart, error)
	Delete(ctx context.Context, id string) error
}

type Products interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

type Service struct {
	log      *slog.Logger
	store    Store
	products Products
	now      func() time.Time
}

func NewService(log *slog.Logger, store Store, products Products) *Service {
	return &Service{log: log, store: store, products: products, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) CreateCart(ctx context.Context) (domain.Cart, error) {
	c := domain.Cart{ID: uuid.NewString(), Items: []domain.Item{}, UpdatedAt: s.now()}
	if err := s.store.Create(ctx, c); err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) GetCart(ctx context.Context, id string) (domain.Cart, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, mapErr(err)
	}
	return c, nil
}

// AddItem snapshots the product's name, price, image and stock into the cart.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (domain.Cart, error) {
	if productID == "" {
		return domain.Cart{}, apperr.Validation("Product ID is missing", "productId")
	}
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !p.InStock {
		return domain.Cart{}, apperr.Conflict("out_of_stock", "Product is out of stock")
	}
	item := domain.Item{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Quantity:      qty,
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	return s.update(ctx, cartID, func(c *domain.Cart) error {
		c.Add(item, s.now())
		return nil
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID string, qty int) (domain.Cart, error) {
	return s.update(ctx, cartID, func(c *domain.Cart) error {
		return c.SetQuantity(productID, qty, s.now())
	})
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (domain.Cart, error) {
	return s.update(ctx, cartID, func(c *domain.Cart) error {
		c.Remove(productID, s.now())
		return nil
	})
}

func (s *Service) ClearCart(ctx context.Context, cartID string) (domain.Cart, error) {
	return s.update(ctx, cartID, func(c *domain.Cart) error {
		c.Clear(s.now())
		return nil
	})
}

func (s *Service) DeleteCart(ctx context.Context, cartID string) error {
	if err := s.store.Delete(ctx, cartID); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Service) update(ctx context.Context, id string, fn func(*domain.Cart) error) (domain.Cart, error) {
	c, err := s.store.Update(ctx, id, fn)
	if err != nil {
		return domain.Cart{}, mapErr(err)
	}
	return c, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("Cart not found")
	case errors.Is(err, domain.ErrItemNotFound):
		return apperr.NotFound("Item not in cart")
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}
