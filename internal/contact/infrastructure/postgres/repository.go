package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/sofa-storefront/internal/contact/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, in domain.Inquiry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO contacts (id, name, email, phone, service, requested_date,
			requested_time, address, message, preferred_contact, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		in.ID, in.Name, in.Email, in.Phone, string(in.Service), in.Date, in.Time, in.Address, in.Message,
		string(in.PreferredContact), in.CreatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Inquiry, error) {
	var (
		in           domain.Inquiry
		svc, channel string
	)
	err := r.pool.QueryRow(ctx, `SELECT id::text, name, email, phone, service, requested_date, requested_time,
			address, message, preferred_contact, created_at
		FROM contacts WHERE id::text = $1`, id).
		Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &svc, &in.Date, &in.Time, &in.Address, &in.Message,
			&channel, &in.CreatedAt)
	if err != nil {
		return domain.Inquiry{}, err
	}
	in.Service = domain.Service(svc)
	in.PreferredContact = domain.Channel(channel)
	return in, nil
}
