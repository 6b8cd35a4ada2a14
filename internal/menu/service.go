package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Actor identifies who is performing a menu operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// InventoryInput captures the starting stock for an item. A nil QtyOnHand
// creates a tracked row with no quantity yet.
type InventoryInput struct {
	QtyOnHand *int
}

// CreateMenuItemInput holds the validated payload to create a menu item.
type CreateMenuItemInput struct {
	Name        string
	Description *string
	Category    enums.MenuCategory
	PriceCents  int
	Allergens   []string
	IsActive    bool
	Inventory   *InventoryInput
}

// UpdateMenuItemInput holds optional mutation values for a menu item.
type UpdateMenuItemInput struct {
	Name        *string
	Description *string
	Category    *enums.MenuCategory
	PriceCents  *int
	Allergens   *[]string
	IsActive    *bool
	Inventory   *InventoryInput
}

// Service exposes menu item management operations.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateMenuItemInput) (*MenuItemDTO, error)
	Update(ctx context.Context, actor Actor, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error)
	Delete(ctx context.Context, actor Actor, itemID uuid.UUID) error
	Get(ctx context.Context, itemID uuid.UUID) (*MenuItemDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo      *Repository
	inventory inventory.Store
	tx        txRunner
	audit     auditRecorder
}

// NewService constructs a menu service instance.
func NewService(repo *Repository, inv inventory.Store, tx txRunner, auditor auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		inventory: inv,
		tx:        tx,
		audit:     auditor,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateMenuItemInput) (*MenuItemDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu category")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if input.Inventory != nil && input.Inventory.QtyOnHand != nil && *input.Inventory.QtyOnHand < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty_on_hand cannot be negative")
	}

	var createdID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item := &models.MenuItem{
			Name:        strings.TrimSpace(input.Name),
			Description: input.Description,
			Category:    input.Category,
			PriceCents:  input.PriceCents,
			Allergens:   pq.StringArray(input.Allergens),
			IsActive:    input.IsActive,
		}
		created, err := txRepo.Create(ctx, item)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert menu item")
		}
		createdID = created.ID

		if input.Inventory != nil {
			row := &models.InventoryItem{
				ItemID:    created.ID,
				QtyOnHand: input.Inventory.QtyOnHand,
			}
			if err := s.inventory.WithTx(tx).Upsert(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert inventory")
			}
		}

		return s.record(ctx, tx, actor, "menu_item.create", created.ID, map[string]any{
			"name":        created.Name,
			"category":    created.Category,
			"price_cents": created.PriceCents,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, createdID)
}

func (s *service) Update(ctx context.Context, actor Actor, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu category")
		}
		updates["category"] = *input.Category
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.Allergens != nil {
		updates["allergens"] = pq.StringArray(*input.Allergens)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Inventory != nil && input.Inventory.QtyOnHand != nil && *input.Inventory.QtyOnHand < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty_on_hand cannot be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindByID(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
		}

		if len(updates) > 0 {
			if err := txRepo.Update(ctx, itemID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update menu item")
			}
		}

		if input.Inventory != nil {
			row := &models.InventoryItem{
				ItemID:    itemID,
				QtyOnHand: input.Inventory.QtyOnHand,
			}
			if err := s.inventory.WithTx(tx).Upsert(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert inventory")
			}
		}

		return s.record(ctx, tx, actor, "menu_item.update", itemID, updates)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, itemID)
}

func (s *service) Delete(ctx context.Context, actor Actor, itemID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
		}

		if err := txRepo.Delete(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete menu item")
		}

		return s.record(ctx, tx, actor, "menu_item.delete", itemID, map[string]any{
			"name": item.Name,
		})
	})
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*MenuItemDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return NewMenuItemDTO(item), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Category != nil && !params.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu category")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		category:        params.Category,
		includeInactive: params.IncludeInactive,
		limit:           pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]MenuItemDTO, len(rows))
	for i := range rows {
		items[i] = *NewMenuItemDTO(&rows[i])
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actor Actor, action string, itemID uuid.UUID, metadata map[string]any) error {
	if s.audit == nil {
		return nil
	}
	actorID := actor.UserID
	return s.audit.Record(ctx, tx, audit.Entry{
		ActorID:    &actorID,
		Action:     action,
		EntityType: "menu_item",
		EntityID:   &itemID,
		Metadata:   metadata,
	})
}

func requireAdmin(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
