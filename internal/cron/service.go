package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/metrics"
)

const defaultLockTTL = 5 * time.Minute

// jobLocker coordinates exclusive runs across worker instances.
type jobLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     jobLocker
	Metrics  *metrics.CronJobMetrics
	LockTTL  time.Duration
}

// Service executes registered cron jobs, each on its own cadence. A redis
// lock keyed by job name keeps concurrent worker replicas from running the
// same job at once.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     jobLocker
	metrics  *metrics.CronJobMetrics
	lockTTL  time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	ttl := params.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		lockTTL:  ttl,
	}, nil
}

// Run starts one loop per registered job and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, entry := range s.registry.Entries() {
		wg.Add(1)
		go func(entry Entry) {
			defer wg.Done()
			s.runLoop(ctx, entry)
		}(entry)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, entry Entry) {
	s.runLocked(ctx, entry.Job)
	ticker := time.NewTicker(entry.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron loop stopped: "+entry.Job.Name())
			return
		case <-ticker.C:
			s.runLocked(ctx, entry.Job)
		}
	}
}

func (s *Service) runLocked(ctx context.Context, job Job) {
	locked, err := s.lock.AcquireLock(ctx, job.Name(), s.lockTTL)
	if err != nil {
		s.logg.Error(ctx, "cron lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(ctx, "another worker holds the lock; skipping "+job.Name())
		return
	}
	defer func() {
		if relErr := s.lock.ReleaseLock(ctx, job.Name()); relErr != nil {
			s.logg.Error(ctx, "cron lock release failed", relErr)
		}
	}()

	s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
