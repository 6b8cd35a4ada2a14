package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

// Repository exposes audit persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one entry. When tx is non-nil the write joins the caller's
// transaction so the trace commits with the mutation it describes.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, entry *models.AuditEntry) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return conn.WithContext(ctx).Create(entry).Error
}

type listQuery struct {
	action     string
	entityType string
	actorID    *uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

// List returns entries using cursor pagination, newest first.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.AuditEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEntry{})

	if opts.action != "" {
		query = query.Where("action = ?", opts.action)
	}
	if opts.entityType != "" {
		query = query.Where("entity_type = ?", opts.entityType)
	}
	if opts.actorID != nil {
		query = query.Where("actor_id = ?", *opts.actorID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.AuditEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan removes entries created before the cutoff and reports how
// many rows went away.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
