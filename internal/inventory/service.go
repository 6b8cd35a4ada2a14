package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Actor identifies who is adjusting stock.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// Service exposes the staff-facing stock management surface.
type Service interface {
	Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	SetQuantity(ctx context.Context, actor Actor, itemID uuid.UUID, qty *int) (*models.InventoryItem, error)
}

type service struct {
	repo  Store
	tx    txRunner
	audit auditRecorder
}

// NewService builds an inventory service backed by the provided store.
func NewService(repo Store, tx txRunner, auditor auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, audit: auditor}, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	row, err := s.repo.Find(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory row not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory")
	}
	return row, nil
}

// SetQuantity writes the absolute stock level. A nil qty marks the item as
// untracked.
func (s *service) SetQuantity(ctx context.Context, actor Actor, itemID uuid.UUID, qty *int) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if qty != nil && *qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	row := &models.InventoryItem{ItemID: itemID, QtyOnHand: qty}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing inventory")
		}
		return s.record(ctx, tx, actor, itemID, qty)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actor Actor, itemID uuid.UUID, qty *int) error {
	if s.audit == nil {
		return nil
	}
	metadata := map[string]any{"tracked": qty != nil}
	if qty != nil {
		metadata["qty_on_hand"] = *qty
	}
	actorID := actor.UserID
	return s.audit.Record(ctx, tx, audit.Entry{
		ActorID:    &actorID,
		Action:     "inventory.set",
		EntityType: "inventory_item",
		EntityID:   &itemID,
		Metadata:   metadata,
	})
}
