package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/sofa-storefront/internal/contact/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

type InquiryRepository interface {
	Create(ctx context.Context, in domain.Inquiry) error
}

type Service struct {
	log  *slog.Logger
	repo InquiryRepository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo InquiryRepository) *Service {
	return &Service{log: log, repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Submit(ctx context.Context, f domain.Form) (domain.Inquiry, error) {
	in, err := f.Parse()
	if err != nil {
		return domain.Inquiry{}, err
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now()
	if err := s.repo.Create(ctx, in); err != nil {
		return domain.Inquiry{}, apperr.Internal(err)
	}
	s.log.InfoContext(ctx, "contact inquiry received", "inquiry_id", in.ID, "service", in.Service)
	return in, nil
}
