package menu

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
)

// MenuItemDTO is the API-facing shape of a menu item. QtyOnHand is absent
// for untracked items.
type MenuItemDTO struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	Category    enums.MenuCategory `json:"category"`
	PriceCents  int                `json:"price_cents"`
	Allergens   []string           `json:"allergens"`
	IsActive    bool               `json:"is_active"`
	Tracked     bool               `json:"tracked"`
	QtyOnHand   *int               `json:"qty_on_hand,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewMenuItemDTO maps the model plus its optional inventory row.
func NewMenuItemDTO(item *models.MenuItem) *MenuItemDTO {
	dto := &MenuItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		PriceCents:  item.PriceCents,
		Allergens:   append([]string{}, item.Allergens...),
		IsActive:    item.IsActive,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.Inventory != nil {
		dto.Tracked = true
		dto.QtyOnHand = item.Inventory.QtyOnHand
	}
	return dto
}
