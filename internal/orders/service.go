package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox/payloads"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) isStaff() bool {
	return a.Role == enums.RoleStaff || a.Role == enums.RoleAdmin
}

// CancelInput carries the data required to cancel a placed order.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// Service defines order lifecycle operations after checkout.
type Service interface {
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo      Repository
	inventory inventory.Store
	tx        txRunner
	outbox    outboxPublisher
	audit     auditRecorder
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, inv inventory.Store, tx txRunner, publisher outboxPublisher, auditor auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		inventory: inv,
		tx:        tx,
		outbox:    publisher,
		audit:     auditor,
	}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actor.UserID && !actor.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	// members only see their own orders; staff may scope to any user
	targetUser := actor.UserID
	if params.UserID != uuid.Nil && params.UserID != actor.UserID {
		if !actor.isStaff() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another user's orders")
		}
		targetUser = params.UserID
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		userID: targetUser,
		status: params.Status,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}

// Cancel moves a placed order to canceled and returns its tracked stock to
// inventory. The status flip, the per-line restores, and the event row all
// commit together or not at all.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != input.Actor.UserID && !input.Actor.isStaff() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPlaced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only placed orders can be canceled")
		}

		for _, line := range order.Lines {
			if err := inv.Restore(ctx, line.ItemID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore inventory")
			}
		}

		now := time.Now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCanceled
		order.CanceledAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				CanceledAt: now,
				Reason:     input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if err := s.record(ctx, tx, input.Actor, "order.cancel", order.ID, map[string]any{
			"reason": input.Reason,
		}); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete marks a placed order as served. Staff only.
func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCompleted {
			result = order
			return nil
		}
		if order.Status != enums.OrderStatusPlaced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only placed orders can be completed")
		}

		now := time.Now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				CompletedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if err := s.record(ctx, tx, actor, "order.complete", order.ID, nil); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actor Actor, action string, orderID uuid.UUID, metadata map[string]any) error {
	if s.audit == nil {
		return nil
	}
	actorID := actor.UserID
	return s.audit.Record(ctx, tx, audit.Entry{
		ActorID:    &actorID,
		Action:     action,
		EntityType: "order",
		EntityID:   &orderID,
		Metadata:   metadata,
	})
}
