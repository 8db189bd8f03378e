package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sofa-storefront/internal/account/application"
	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	"github.com/dmehra2102/sofa-storefront/internal/account/infrastructure/redis"
	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

const sofaID = "0b9f7c1e-4a53-4a42-9d0e-6f1c2b1d7a10"

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) find(match func(domain.User) bool) (int, bool) {
	for i, u := range m.users {
		if match(u) {
			return i, true
		}
	}
	return 0, false
}

func (m *memUsers) Create(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.find(func(x domain.User) bool { return strings.EqualFold(x.Email, u.Email) }); ok {
		return domain.ErrEmailTaken
	}
	m.users = append(m.users, u)
	return nil
}

func (m *memUsers) Get(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(func(x domain.User) bool { return x.ID == id })
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return m.users[i], nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(func(x domain.User) bool { return strings.EqualFold(x.Email, email) })
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return m.users[i], nil
}

func (m *memUsers) Wishlist(ctx context.Context, userID string) ([]string, error) {
	u, err := m.Get(ctx, userID)
	return u.Wishlist, err
}

func (m *memUsers) AddToWishlist(_ context.Context, userID, productID string) error {
	return m.edit(userID, func(u *domain.User) {
		if !slices.Contains(u.Wishlist, productID) {
			u.Wishlist = append(u.Wishlist, productID)
		}
	})
}

func (m *memUsers) RemoveFromWishlist(_ context.Context, userID, productID string) error {
	return m.edit(userID, func(u *domain.User) {
		u.Wishlist = slices.DeleteFunc(u.Wishlist, func(id string) bool { return id == productID })
	})
}

func (m *memUsers) edit(userID string, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(func(x domain.User) bool { return x.ID == userID })
	if !ok {
		return domain.ErrNotFound
	}
	fn(&m.users[i])
	return nil
}

type oneProduct struct{}

func (oneProduct) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	if id != sofaID {
		return catalog.Product{}, apperr.NotFound("Product not found")
	}
	return catalog.Product{ID: sofaID, Name: "Chesterfield"}, nil
}

func (p oneProduct) GetProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for _, id := range ids {
		if prod, err := p.GetProduct(ctx, id); err == nil {
			out = append(out, prod)
		}
	}
	return out, nil
}

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, &memUsers{}, redis.NewSessionStore(rdb, time.Hour), oneProduct{})
	r := chi.NewRouter()
	NewHandler(log, svc).Routes(r)
	return r
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func registerAndLogin(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(r, http.MethodPost, "/auth/register", "",
		`{"username":"ann","email":"ann@example.com","password":"s3cretpass","acceptTerms":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPost, "/auth/login", "", `{"email":"ann@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func TestRegister(t *testing.T) {
	r := newRouter(t)
	rec := do(r, http.MethodPost, "/auth/register", "",
		`{"username":"ann","email":"ann@example.com","password":"s3cretpass","acceptTerms":true}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "User registered successfully!", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(r, http.MethodPost, "/auth/register", "",
		`{"username":"ann","email":"ann@example.com","password":"s3cretpass","acceptTerms":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User email already exists!", decode(t, rec)["message"])

	rec = do(r, http.MethodPost, "/auth/register", "",
		`{"username":"bob","email":"bob@example.com","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You must accept the terms and conditions!", decode(t, rec)["message"])

	rec = do(r, http.MethodPost, "/auth/register", "",
		`{"username":"cat","email":"cat@example.com","password":"`+strings.Repeat("x", 73)+`","acceptTerms":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at most 72 bytes long", decode(t, rec)["message"])
}

func TestLogin(t *testing.T) {
	r := newRouter(t)
	token := registerAndLogin(t, r)
	assert.NotEmpty(t, token)

	rec := do(r, http.MethodPost, "/auth/login", "", `{"email":"ann@example.com","password":"wrongpass1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials!", decode(t, rec)["message"])

	rec = do(r, http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found!", decode(t, rec)["message"])
}

func TestWishlistRequiresSession(t *testing.T) {
	r := newRouter(t)
	rec := do(r, http.MethodGet, "/wishlist", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User Unauthorized", decode(t, rec)["message"])

	rec = do(r, http.MethodGet, "/wishlist", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWishlistFlow(t *testing.T) {
	r := newRouter(t)
	token := registerAndLogin(t, r)

	rec := do(r, http.MethodPost, "/wishlist", token, `"`+sofaID+`"`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/wishlist", token, `{"productId":"`+sofaID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/wishlist", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	wishlist := decode(t, rec)["wishlist"].([]any)
	require.Len(t, wishlist, 1)
	assert.Equal(t, "Chesterfield", wishlist[0].(map[string]any)["name"])

	rec = do(r, http.MethodDelete, "/wishlist", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product ID is missing", decode(t, rec)["message"])

	rec = do(r, http.MethodDelete, "/wishlist", token, `"`+sofaID+`"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product removed from wishlist", decode(t, rec)["message"])

	rec = do(r, http.MethodGet, "/wishlist", token, "")
	assert.JSONEq(t, `{"wishlist":[]}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(r, http.MethodGet, "/wishlist", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
