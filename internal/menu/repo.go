package menu

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
)

// Repository exposes menu item persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a menu repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new menu item row.
func (r *Repository) Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Inventory").Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies the given column updates to one item.
func (r *Repository) Update(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

// FindByID loads one item with its inventory row when present.
func (r *Repository) FindByID(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns menu items using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.MenuItem, error) {
	query := r.db.WithContext(ctx).Model(&models.MenuItem{}).Preload("Inventory")

	if opts.category != nil {
		query = query.Where("category = ?", *opts.category)
	}
	if !opts.includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.MenuItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the item and its inventory row.
func (r *Repository) Delete(ctx context.Context, itemID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Delete(&models.InventoryItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.MenuItem{}).Error
}
