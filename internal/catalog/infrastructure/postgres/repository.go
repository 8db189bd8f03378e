package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/internal/catalog/application"
	"github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
)

const productColumns = `id::text, name, slug, description, price::text, category, images, material, colors,
	seating_capacity, features, stock_quantity, in_stock, brand, warranty, reviews, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *Repository) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id::text = ANY($1)`, ids)
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, slug, description, price, category, images, material,
			colors, seating_capacity, features, stock_quantity, in_stock, brand, warranty, reviews, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.Name, p.Slug, p.Description, p.Price.String(), string(p.Category), p.Images, string(p.Material),
		p.Colors, p.SeatingCapacity, p.Features, p.StockQuantity, p.InStock, p.Brand, p.Warranty, p.Reviews,
		p.CreatedAt, p.UpdatedAt)
	if database.IsUniqueViolation(err, "products_slug_key") {
		return application.ErrSlugTaken
	}
	return err
}

func (r *Repository) one(ctx context.Context, sql string, arg any) (domain.Product, error) {
	products, err := r.query(ctx, sql, arg)
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return products[0], nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (domain.Product, error) {
	var (
		p                  domain.Product
		price              string
		category, material string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &price, &category, &p.Images, &material, &p.Colors,
		&p.SeatingCapacity, &p.Features, &p.StockQuantity, &p.InStock, &p.Brand, &p.Warranty, &p.Reviews,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Category = domain.Category(category)
	p.Material = domain.Material(material)
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
