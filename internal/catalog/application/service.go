package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

var ErrSlugTaken = errors.New("slug taken")

type Service struct {
	log  *slog.Logger
	repo ProductRepository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo ProductRepository) *Service {
	return &Service{log: log, repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperr.NotFound("Product not found")
	}
	return s.found(s.repo.Get(ctx, id))
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if strings.TrimSpace(slug) == "" {
		return domain.Product{}, apperr.NotFound("Product not found")
	}
	return s.found(s.repo.GetBySlug(ctx, slug))
}

// GetProducts resolves ids to products, skipping ids that are not valid or
// no longer exist. The result follows the order of ids.
func (s *Service) GetProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.Product{}, nil
	}
	found, err := s.repo.GetMany(ctx, valid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(found))
	for _, id := range valid {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Slug = strings.TrimSpace(p.Slug)
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	for i := range p.Reviews {
		if p.Reviews[i].CreatedAt.IsZero() {
			p.Reviews[i].CreatedAt = now
		}
	}
	for _, list := range []*[]string{&p.Images, &p.Colors, &p.Features} {
		if *list == nil {
			*list = []string{}
		}
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return domain.Product{}, apperr.Conflict("slug_taken", "A product with this slug already exists")
		}
		return domain.Product{}, apperr.Internal(err)
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "slug", p.Slug)
	return p, nil
}

func (s *Service) found(p domain.Product, err error) (domain.Product, error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Product{}, apperr.NotFound("Product not found")
	case err != nil:
		return domain.Product{}, apperr.Internal(err)
	}
	return p, nil
}
