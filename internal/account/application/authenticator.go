package application

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

const ProviderCredentials = "credentials"

// LocalAuthenticator checks an email and password against the stored hash.
type LocalAuthenticator struct {
	users UserRepository
}

func NewLocalAuthenticator(users UserRepository) *LocalAuthenticator {
	return &LocalAuthenticator{users: users}
}

func (a *LocalAuthenticator) Authenticate(ctx context.Context, c domain.Credentials) (domain.User, error) {
	u, err := a.users.GetByEmail(ctx, strings.TrimSpace(c.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, apperr.NotFound("User not found!")
	}
	if err != nil {
		return domain.User{}, apperr.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(strings.TrimSpace(c.Password))); err != nil {
		return domain.User{}, apperr.Validation("Invalid credentials!")
	}
	return u, nil
}
