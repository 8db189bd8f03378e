package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/internal/payment/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

const attemptColumns = `id::text, order_id, phone, amount::text, status, merchant_request_id,
	coalesce(checkout_request_id, ''), result_code, result_desc, receipt_number, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, a domain.Attempt) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payment_attempts (id, order_id, phone, amount, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5,$6,$7)`,
		a.ID, a.OrderID, a.Phone, a.Amount.String(), string(a.Status), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE id=$1`, id))
	if database.IsNoRows(err) {
		return domain.Attempt{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repository) UpdateByID(ctx context.Context, id string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	return r.update(ctx, `id = $1`, id, fn)
}

func (r *Repository) UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	return r.update(ctx, `checkout_request_id = $1`, checkoutRequestID, fn)
}

func (r *Repository) update(ctx context.Context, where, key string, fn func(*domain.Attempt) (*outbox.Message, error)) (domain.Attempt, error) {
	var updated domain.Attempt
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanAttempt(tx.QueryRow(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE `+where+` FOR UPDATE`, key))
		if database.IsNoRows(err) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		event, err := fn(&a)
		if err != nil {
			return err
		}

		var checkoutID *string
		if a.CheckoutRequestID != "" {
			checkoutID = &a.CheckoutRequestID
		}
		_, err = tx.Exec(ctx, `UPDATE payment_attempts SET status=$2, merchant_request_id=$3, checkout_request_id=$4,
				result_code=$5, result_desc=$6, receipt_number=$7, updated_at=$8
			WHERE id=$1`,
			a.ID, string(a.Status), a.MerchantRequestID, checkoutID, a.ResultCode, a.ResultDesc, a.ReceiptNumber, a.UpdatedAt)
		if err != nil {
			return err
		}
		if event != nil {
			if err := outbox.Insert(ctx, tx, *event); err != nil {
				return err
			}
		}
		updated = a
		return nil
	})
	return updated, err
}

func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text FROM payment_attempts
		WHERE status = 'processing' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		a              domain.Attempt
		amount, status string
	)
	err := row.Scan(&a.ID, &a.OrderID, &a.Phone, &amount, &status, &a.MerchantRequestID,
		&a.CheckoutRequestID, &a.ResultCode, &a.ResultDesc, &a.ReceiptNumber, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Attempt{}, err
	}
	a.Status = domain.Status(status)
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Attempt{}, err
	}
	return a, nil
}
