package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

type staleCartDeleter interface {
	DeleteStaleAnonymous(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartTTLJobParams configure the anonymous cart sweeper.
type CartTTLJobParams struct {
	Logger *logger.Logger
	Carts  staleCartDeleter
	TTL    time.Duration
}

// NewCartTTLJob builds the job that purges anonymous carts whose last
// activity predates the configured TTL. Owned carts are never touched.
func NewCartTTLJob(params CartTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("anonymous cart ttl must be positive")
	}
	return &cartTTLJob{
		logg:  params.Logger,
		carts: params.Carts,
		ttl:   params.TTL,
		now:   time.Now,
	}, nil
}

type cartTTLJob struct {
	logg  *logger.Logger
	carts staleCartDeleter
	ttl   time.Duration
	now   func() time.Time
}

func (j *cartTTLJob) Name() string { return "cart-ttl" }

func (j *cartTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.carts.DeleteStaleAnonymous(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge stale anonymous carts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"deleted": deleted, "cutoff": cutoff})
	j.logg.Info(logCtx, "anonymous cart sweep complete")
	return nil
}
