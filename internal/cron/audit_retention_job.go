package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

type auditTrimmer interface {
	TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJobParams configure the audit retention sweeper.
type AuditRetentionJobParams struct {
	Logger    *logger.Logger
	Audit     auditTrimmer
	Retention time.Duration
}

// NewAuditRetentionJob builds the job that deletes audit entries past the
// configured retention window.
func NewAuditRetentionJob(params AuditRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("audit retention must be positive")
	}
	return &auditRetentionJob{
		logg:      params.Logger,
		audit:     params.Audit,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type auditRetentionJob struct {
	logg      *logger.Logger
	audit     auditTrimmer
	retention time.Duration
	now       func() time.Time
}

func (j *auditRetentionJob) Name() string { return "audit-retention" }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.audit.TrimOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("trim audit entries: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"deleted": deleted, "cutoff": cutoff})
	j.logg.Info(logCtx, "audit retention sweep complete")
	return nil
}
