package application

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper struct {
	log      *slog.Logger
	svc      *Service
	interval time.Duration
}

func NewSweeper(log *slog.Logger, svc *Service, interval time.Duration) *Sweeper {
	return &Sweeper{log: log, svc: svc, interval: interval}
}

// Run expires stale attempts every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.svc.ExpireStale(ctx); err != nil {
				s.log.Error("payment sweep failed", "err", err)
			}
		}
	}
}
