package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/internal/orders"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockConflictDetail names the line that could not be satisfied.
type StockConflictDetail struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, cartToken string) (*models.Order, error)
}

type service struct {
	tx        txRunner
	cartRepo  cart.CartRepository
	orderRepo orders.Repository
	inventory inventory.Store
	outbox    outboxPublisher
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	orderRepo orders.Repository,
	inv inventory.Store,
	publisher outboxPublisher,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:        tx,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		inventory: inv,
		outbox:    publisher,
	}, nil
}

// Execute converts the cart behind cartToken into a placed order. Every line
// decrements its inventory row under a qty_on_hand >= quantity guard, so two
// concurrent checkouts can never drive stock negative. The first line that
// cannot be satisfied aborts the transaction and nothing is decremented,
// no order row survives, and the cart is left intact.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, cartToken string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if cartToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart token required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		record, err := cartRepo.FindByTokenForUpdate(ctx, cartToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if record.UserID != nil && *record.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if len(record.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		itemIDs := make([]uuid.UUID, 0, len(record.Lines))
		seen := make(map[uuid.UUID]struct{}, len(record.Lines))
		for _, line := range record.Lines {
			if _, ok := seen[line.ItemID]; ok {
				continue
			}
			seen[line.ItemID] = struct{}{}
			itemIDs = append(itemIDs, line.ItemID)
		}
		snapshot, err := inv.GetSnapshot(ctx, itemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory snapshot")
		}

		for _, line := range record.Lines {
			snap, tracked := snapshot[line.ItemID]
			if !tracked || !snap.Active {
				return pkgerrors.New(pkgerrors.CodeStockConflict, "item no longer available").
					WithDetails(StockConflictDetail{
						ItemID:    line.ItemID,
						Name:      line.Name,
						Requested: line.Quantity,
						Available: 0,
					})
			}

			ok, err := inv.Decrement(ctx, line.ItemID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
			}
			if !ok {
				available := 0
				if snap.QtyOnHand != nil {
					available = *snap.QtyOnHand
				}
				return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock").
					WithDetails(StockConflictDetail{
						ItemID:    line.ItemID,
						Name:      line.Name,
						Requested: line.Quantity,
						Available: available,
					})
			}
		}

		order := &models.Order{
			UserID:        userID,
			Status:        enums.OrderStatusPlaced,
			SubtotalCents: record.SubtotalCents,
			TaxCents:      record.TaxCents,
			TotalCents:    record.TotalCents,
		}
		created, err := orderRepo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		lineItems := make([]models.OrderLineItem, 0, len(record.Lines))
		for _, line := range record.Lines {
			lineItems = append(lineItems, models.OrderLineItem{
				OrderID:        created.ID,
				ItemID:         line.ItemID,
				Name:           line.Name,
				Notes:          line.Notes,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
				LineTotalCents: line.LineTotalCents,
			})
		}
		if err := orderRepo.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}

		if err := cartRepo.Delete(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}

		if err := s.emitOrderPlacedEvent(ctx, tx, created, len(lineItems), userID); err != nil {
			return err
		}

		result, err = orderRepo.FindByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) emitOrderPlacedEvent(ctx context.Context, tx *gorm.DB, order *models.Order, lineCount int, userID uuid.UUID) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: userID},
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			UserID:        userID,
			LineCount:     lineCount,
			SubtotalCents: order.SubtotalCents,
			TaxCents:      order.TaxCents,
			TotalCents:    order.TotalCents,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}
