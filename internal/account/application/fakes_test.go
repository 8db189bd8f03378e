package application

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) Create(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Get(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memUsers) Wishlist(ctx context.Context, userID string) ([]string, error) {
	u, err := m.Get(ctx, userID)
	return slices.Clone(u.Wishlist), err
}

func (m *memUsers) AddToWishlist(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if !slices.Contains(u.Wishlist, productID) {
		u.Wishlist = append(u.Wishlist, productID)
	}
	m.users[userID] = u
	return nil
}

func (m *memUsers) RemoveFromWishlist(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Wishlist = slices.DeleteFunc(u.Wishlist, func(id string) bool { return id == productID })
	m.users[userID] = u
	return nil
}

type memSessions struct {
	mu     sync.Mutex
	next   int
	tokens map[string]string
}

func newMemSessions() *memSessions { return &memSessions{tokens: map[string]string{}} }

func (m *memSessions) Create(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	token := fmt.Sprintf("tok-%d", m.next)
	m.tokens[token] = userID
	return token, nil
}

func (m *memSessions) Resolve(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return "", domain.ErrNoSession
	}
	return id, nil
}

func (m *memSessions) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

type fakeProducts map[string]catalog.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("Product not found")
	}
	return p, nil
}

func (f fakeProducts) GetProducts(_ context.Context, ids []string) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
