package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

const BcryptCost = 10

const emailTakenMessage = "User email already exists!"

type Session struct {
	Token string
	User  domain.User
}

type Service struct {
	log            *slog.Logger
	users          UserRepository
	sessions       SessionStore
	products       Products
	authenticators map[string]Authenticator
	now            func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithAuthenticator registers a login provider under name.
func WithAuthenticator(name string, a Authenticator) Option {
	return func(s *Service) { s.authenticators[name] = a }
}

func NewService(log *slog.Logger, users UserRepository, sessions SessionStore, products Products, opts ...Option) *Service {
	s := &Service{
		log:            log,
		users:          users,
		sessions:       sessions,
		products:       products,
		authenticators: map[string]Authenticator{ProviderCredentials: NewLocalAuthenticator(users)},
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if err := reg.Validate(); err != nil {
		return domain.User{}, err
	}
	email := strings.TrimSpace(reg.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.User{}, apperr.Validation(emailTakenMessage, "email")
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, apperr.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(reg.Password)), BcryptCost)
	if err != nil {
		return domain.User{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	u := domain.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(reg.Username),
		Email:        email,
		PasswordHash: string(hash),
		AcceptTerms:  reg.AcceptTerms,
		Wishlist:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, apperr.Validation(emailTakenMessage, "email")
		}
		return domain.User{}, apperr.Internal(err)
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login authenticates through the named provider and opens a session.
func (s *Service) Login(ctx context.Context, provider string, c domain.Credentials) (Session, error) {
	auth, ok := s.authenticators[provider]
	if !ok {
		return Session{}, apperr.Validation("Unsupported login provider", "provider")
	}
	if err := c.Validate(); err != nil {
		return Session{}, err
	}
	u, err := auth.Authenticate(ctx, c)
	if err != nil {
		return Session{}, err
	}
	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("create session: %w", err))
	}
	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID, "provider", provider)
	return Session{Token: token, User: u}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Authenticate resolves a session token to its user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthorized("User Unauthorized")
	}
	userID, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, domain.ErrNoSession) {
		return "", apperr.Unauthorized("User Unauthorized")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return userID, nil
}

func (s *Service) Wishlist(ctx context.Context, userID string) ([]catalog.Product, error) {
	ids, err := s.users.Wishlist(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	return s.products.GetProducts(ctx, ids)
}

func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return apperr.Validation("Product ID is missing", "productId")
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.users.AddToWishlist(ctx, userID, productID); err != nil {
		return s.userErr(err)
	}
	return nil
}

func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return apperr.Validation("Product ID is missing", "productId")
	}
	if _, err := uuid.Parse(productID); err != nil {
		return nil
	}
	if err := s.users.RemoveFromWishlist(ctx, userID, productID); err != nil {
		return s.userErr(err)
	}
	return nil
}

func (s *Service) userErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperr.NotFound("User not found!")
	}
	return apperr.Internal(err)
}
