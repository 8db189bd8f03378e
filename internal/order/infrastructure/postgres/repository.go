package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
)

const orderColumns = `id::text, order_number, user_id, name, email, phone, address, delivery_method,
	payment_method, payment_time, total_amount::text, status, payment_status, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreateWithOutbox serialises submissions sharing a fingerprint with a
// transaction-scoped advisory lock, so two concurrent copies of one order
// cannot both pass the guard.
func (r *Repository) CreateWithOutbox(ctx context.Context, o domain.Order, event outbox.Message) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, o.Fingerprint()); err != nil {
			return fmt.Errorf("guard lock: %w", err)
		}

		candidates, err := r.listWhere(ctx, tx, "",
			`lower(email) = lower($1) AND phone = $2 AND total_amount = $3::numeric`,
			o.Email, o.Phone, o.TotalAmount.String())
		if err != nil {
			return fmt.Errorf("guard lookup: %w", err)
		}
		if dup, ok := domain.FindDuplicate(candidates, o); ok {
			return &domain.DuplicateError{Existing: dup}
		}

		_, err = tx.Exec(ctx, `INSERT INTO orders (id, order_number, user_id, name, email, phone, address,
				delivery_method, payment_method, payment_time, total_amount, status, payment_status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::numeric,$12,$13,$14,$15)`,
			o.ID, o.OrderNumber, o.UserID, o.Name, o.Email, o.Phone, o.Address,
			string(o.DeliveryMethod), string(o.PaymentMethod), string(o.PaymentTime), o.TotalAmount.String(),
			string(o.Status), string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "orders_order_number_key") {
				return domain.ErrOrderNumberTaken
			}
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range o.Items {
			batch.Queue(`INSERT INTO order_items (order_id, line, product_id, name, price, quantity)
				VALUES ($1,$2,$3,$4,$5::numeric,$6)`,
				o.ID, i, item.ProductID, item.Name, item.Price.String(), item.Quantity)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		return outbox.Insert(ctx, tx, event)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	orders, err := r.listWhere(ctx, r.pool, "", `id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return orders[0], nil
}

func (r *Repository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.listWhere(ctx, r.pool, "", `lower(email) = lower($1)`, email)
}

func (r *Repository) Update(ctx context.Context, id string, fn func(*domain.Order) (*outbox.Message, error)) (domain.Order, error) {
	var updated domain.Order
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		orders, err := r.listWhere(ctx, tx, "FOR UPDATE", `id = $1`, id)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return domain.ErrNotFound
		}
		o := orders[0]

		event, err := fn(&o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, payment_status=$3, updated_at=$4 WHERE id=$1`,
			o.ID, string(o.Status), string(o.PaymentStatus), o.UpdatedAt); err != nil {
			return err
		}
		if event != nil {
			if err := outbox.Insert(ctx, tx, *event); err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	return updated, err
}

// listWhere loads orders matching where, newest first, with their items.
// lock is appended to the order query, e.g. FOR UPDATE.
func (r *Repository) listWhere(ctx context.Context, q querier, lock, where string, args ...any) ([]domain.Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC `+lock, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}
	rows, err = q.Query(ctx, `SELECT order_id::text, product_id, name, price::text, quantity
		FROM order_items WHERE order_id::text = ANY($1) ORDER BY order_id, line`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID, price string
			item           domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, err
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var (
		o                                           domain.Order
		total                                       string
		delivery, method, timing, status, payStatus string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Name, &o.Email, &o.Phone, &o.Address,
		&delivery, &method, &timing, &total, &status, &payStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.DeliveryMethod = domain.DeliveryMethod(delivery)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentTime = domain.PaymentTime(timing)
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}
