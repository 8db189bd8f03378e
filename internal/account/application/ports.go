package application

import (
	"context"

	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
)

type UserRepository interface {
	// Create returns domain.ErrEmailTaken when the email is registered.
	Create(ctx context.Context, u domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Wishlist(ctx context.Context, userID string) ([]string, error)
	AddToWishlist(ctx context.Context, userID, productID string) error
	RemoveFromWishlist(ctx context.Context, userID, productID string) error
}

type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	// Resolve returns domain.ErrNoSession for unknown or expired tokens.
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Authenticator checks credentials for one login provider.
type Authenticator interface {
	Authenticate(ctx context.Context, c domain.Credentials) (domain.User, error)
}

type Products interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	GetProducts(ctx context.Context, ids []string) ([]catalog.Product, error)
}
