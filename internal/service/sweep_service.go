package service

import (
	"context"
	"log"
	"time"

	"fursa/internal/lock"
)

type StaleExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// SweepService expires intentions that were never paid. The lease keeps
// multiple instances from sweeping at once; the conditional UPDATE makes a
// concurrent sweep harmless anyway.
type SweepService struct {
	intentions StaleExpirer
	locker     lock.Locker
}

func NewSweepService(intentions StaleExpirer, locker lock.Locker) *SweepService {
	return &SweepService{intentions: intentions, locker: locker}
}

func (s *SweepService) Run(ctx context.Context) (int64, error) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, "sweep:intentions", time.Minute)
		if err == nil && !ok {
			return 0, nil
		}
		if err == nil {
			defer release()
		}
	}
	n, err := s.intentions.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[sweep] expired %d stale payment intentions", n)
	}
	return n, nil
}
