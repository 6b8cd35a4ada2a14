package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
)

// Snapshot is the read-only inventory view used by cart merge and checkout.
// QtyOnHand is nil when the item carries no stock tracking.
type Snapshot struct {
	QtyOnHand      *int
	Active         bool
	UnitPriceCents int
	Name           string
}

// Store is the persistence surface cart merge and checkout depend on.
type Store interface {
	WithTx(tx *gorm.DB) Store
	GetSnapshot(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]Snapshot, error)
	Decrement(ctx context.Context, itemID uuid.UUID, qty int) (bool, error)
	Restore(ctx context.Context, itemID uuid.UUID, qty int) error
	Upsert(ctx context.Context, item *models.InventoryItem) error
	Find(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
}

// Repository exposes inventory persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

type snapshotRow struct {
	ItemID     uuid.UUID
	Name       string
	IsActive   bool
	PriceCents int
	QtyOnHand  *int
}

// GetSnapshot returns the inventory view for the requested items in one
// batched query. Items without a menu row are absent from the result.
func (r *Repository) GetSnapshot(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	out := make(map[uuid.UUID]Snapshot, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []snapshotRow
	err := r.db.WithContext(ctx).
		Table("menu_items").
		Select("menu_items.id AS item_id, menu_items.name, menu_items.is_active, menu_items.price_cents, inventory_items.qty_on_hand").
		Joins("LEFT JOIN inventory_items ON inventory_items.item_id = menu_items.id").
		Where("menu_items.id IN ?", itemIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ItemID] = Snapshot{
			QtyOnHand:      row.QtyOnHand,
			Active:         row.IsActive,
			UnitPriceCents: row.PriceCents,
			Name:           row.Name,
		}
	}
	return out, nil
}

// Decrement subtracts qty from the item's stock with a conditional guard so
// concurrent checkouts can never drive qty_on_hand negative. Untracked items
// (no row, or null qty_on_hand) always succeed.
func (r *Repository) Decrement(ctx context.Context, itemID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("item_id = ? AND qty_on_hand >= ?", itemID, qty).
		Update("qty_on_hand", gorm.Expr("qty_on_hand - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Nothing updated: either the stock guard failed or the item is untracked.
	// The NULL comparison above never matches, so untracked rows land here too.
	var tracked int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("item_id = ? AND qty_on_hand IS NOT NULL", itemID).
		Count(&tracked).Error
	if err != nil {
		return false, err
	}
	return tracked == 0, nil
}

// Restore returns qty units to the item's stock, used when a placed order is
// canceled. Untracked items are left alone.
func (r *Repository) Restore(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("item_id = ? AND qty_on_hand IS NOT NULL", itemID).
		Update("qty_on_hand", gorm.Expr("qty_on_hand + ?", qty)).Error
}

// Upsert writes the stock level for an item, creating the row when absent.
func (r *Repository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	existing := models.InventoryItem{}
	err := r.db.WithContext(ctx).
		Where("item_id = ?", item.ItemID).
		First(&existing).Error
	if err == nil {
		return r.db.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("item_id = ?", item.ItemID).
			Update("qty_on_hand", item.QtyOnHand).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Find loads the inventory row for an item.
func (r *Repository) Find(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	var row models.InventoryItem
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
