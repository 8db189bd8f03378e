//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
	"github.com/dmehra2102/sofa-storefront/pkg/testenv"
)

func newOrder(email string) domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	number, _ := domain.NewOrderNumber(now, nil)
	return domain.Order{
		ID:             uuid.NewString(),
		OrderNumber:    number,
		Name:           "Jane",
		Email:          email,
		Phone:          "0712345678",
		Address:        "Kilimani",
		DeliveryMethod: domain.DeliveryStandard,
		PaymentMethod:  domain.PaymentMpesa,
		PaymentTime:    domain.PayNow,
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Chesterfield", Price: decimal.RequireFromString("45000.50"), Quantity: 1},
			{ProductID: "p2", Name: "Ottoman", Price: decimal.NewFromInt(5000), Quantity: 2},
		},
		TotalAmount:   decimal.RequireFromString("55000.50"),
		Status:        domain.StatusProcessing,
		PaymentStatus: domain.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func created(t *testing.T, o domain.Order) outbox.Message {
	m, err := outbox.NewMessage(context.Background(), domain.AggregateType, o.ID, domain.EventOrderCreated, domain.OrderCreated{OrderID: o.ID})
	require.NoError(t, err)
	return m
}

func TestRepositoryRoundTripAndGuard(t *testing.T) {
	ctx := context.Background()
	pool := testenv.Postgres(t)
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), pool)

	o := newOrder("jane@example.com")
	require.NoError(t, repo.CreateWithOutbox(ctx, o, created(t, o)))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("45000.50")))
	assert.Equal(t, 2, got.Items[1].Quantity)

	dup := newOrder("Jane@Example.com")
	dup.Items = dup.Items[1:]
	err = repo.CreateWithOutbox(ctx, dup, created(t, dup))
	var dupErr *domain.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, o.ID, dupErr.Existing.ID)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE aggregate_id=$1`, o.ID).Scan(&pending))
	assert.Equal(t, 1, pending)
}

func TestRepositoryConcurrentDuplicatesInsertOnce(t *testing.T) {
	ctx := context.Background()
	pool := testenv.Postgres(t)
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), pool)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := newOrder("race@example.com")
			err := repo.CreateWithOutbox(ctx, o, created(t, o))
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, dups int
	for _, err := range errs {
		var dupErr *domain.DuplicateError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &dupErr):
			dups++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, dups)

	orders, err := repo.ListByEmail(ctx, "race@example.com")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestRepositoryListByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), testenv.Postgres(t))

	o := newOrder("Mixed.Case@Example.com")
	require.NoError(t, repo.CreateWithOutbox(ctx, o, created(t, o)))

	for _, email := range []string{"mixed.case@example.com", "MIXED.CASE@EXAMPLE.COM", "Mixed.Case@Example.com"} {
		orders, err := repo.ListByEmail(ctx, email)
		require.NoError(t, err)
		require.Len(t, orders, 1, email)
		assert.Equal(t, o.ID, orders[0].ID)
	}
}

func TestRepositoryOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), testenv.Postgres(t))

	a := newOrder("a@example.com")
	require.NoError(t, repo.CreateWithOutbox(ctx, a, created(t, a)))

	b := newOrder("b@example.com")
	b.OrderNumber = a.OrderNumber
	assert.ErrorIs(t, repo.CreateWithOutbox(ctx, b, created(t, b)), domain.ErrOrderNumberTaken)
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), testenv.Postgres(t))

	o := newOrder("u@example.com")
	require.NoError(t, repo.CreateWithOutbox(ctx, o, created(t, o)))

	updated, err := repo.Update(ctx, o.ID, func(o *domain.Order) (*outbox.Message, error) {
		_, err := o.TransitionTo(domain.StatusShipped, time.Now().UTC())
		return nil, err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)

	_, err = repo.Update(ctx, o.ID, func(o *domain.Order) (*outbox.Message, error) {
		_, err := o.TransitionTo(domain.StatusProcessing, time.Now().UTC())
		return nil, err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)
}
