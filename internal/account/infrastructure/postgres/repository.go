package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
)

const userColumns = `id::text, username, email, password_hash, accept_terms, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, username, email, password_hash, accept_terms, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.AcceptTerms, u.CreatedAt, u.UpdatedAt)
	if database.IsUniqueViolation(err, "users_email_key") {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *Repository) Wishlist(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id::text FROM user_wishlist
		WHERE user_id::text = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// AddToWishlist is a set insert: adding a product twice keeps one entry.
func (r *Repository) AddToWishlist(ctx context.Context, userID, productID string) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := exists(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO user_wishlist (user_id, product_id, added_at)
			VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`, userID, productID)
		return err
	})
}

func (r *Repository) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := exists(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM user_wishlist WHERE user_id::text = $1 AND product_id::text = $2`,
			userID, productID)
		return err
	})
}

func exists(ctx context.Context, tx pgx.Tx, userID string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id::text = $1`, userID).Scan(&one)
	if database.IsNoRows(err) {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repository) one(ctx context.Context, sql string, arg any) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.AcceptTerms, &u.CreatedAt, &u.UpdatedAt)
	if database.IsNoRows(err) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Wishlist, err = r.Wishlist(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
