package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox/payloads"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

const (
	maxPartySize = 12
	// bookings must land at least this far out so the floor can prepare
	minLeadTime = 30 * time.Minute
	// and no further out than this
	maxBookingWindow = 90 * 24 * time.Hour
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

// Actor identifies who is performing a reservation operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) isStaff() bool {
	return a.Role == enums.RoleStaff || a.Role == enums.RoleAdmin
}

// BookInput holds the validated payload to book a table.
type BookInput struct {
	PartySize   int
	ReservedFor time.Time
	Notes       *string
}

// ListParams holds reservation listing inputs.
type ListParams struct {
	UserID uuid.UUID
	pkgpagination.Params
}

// ListResult pages reservations newest first.
type ListResult struct {
	Items  []models.Reservation `json:"items"`
	Cursor string               `json:"cursor"`
}

// Service exposes table reservation operations.
type Service interface {
	Book(ctx context.Context, actor Actor, input BookInput) (*models.Reservation, error)
	List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	Cancel(ctx context.Context, actor Actor, reservationID uuid.UUID) (*models.Reservation, error)
	Seat(ctx context.Context, actor Actor, reservationID uuid.UUID) (*models.Reservation, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
	audit  auditRecorder
}

// NewService builds a reservation service.
func NewService(repo *Repository, tx txRunner, publisher outboxPublisher, auditor auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: publisher,
		audit:  auditor,
	}, nil
}

func (s *service) Book(ctx context.Context, actor Actor, input BookInput) (*models.Reservation, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PartySize < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party_size must be at least 1")
	}
	if input.PartySize > maxPartySize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("party_size cannot exceed %d", maxPartySize))
	}
	now := time.Now()
	if input.ReservedFor.Before(now.Add(minLeadTime)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved_for must be at least 30 minutes from now")
	}
	if input.ReservedFor.After(now.Add(maxBookingWindow)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved_for is too far in the future")
	}

	var result *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		reservation := &models.Reservation{
			UserID:      actor.UserID,
			PartySize:   input.PartySize,
			ReservedFor: input.ReservedFor,
			Status:      enums.ReservationStatusBooked,
			Notes:       input.Notes,
		}
		created, err := txRepo.Create(ctx, reservation)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert reservation")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReservationBooked,
			AggregateType: enums.AggregateReservation,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.ReservationBookedEvent{
				ReservationID: created.ID,
				UserID:        actor.UserID,
				PartySize:     created.PartySize,
				ReservedFor:   created.ReservedFor,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if err := s.record(ctx, tx, actor, "reservation.book", created.ID, map[string]any{
			"party_size":   created.PartySize,
			"reserved_for": created.ReservedFor,
		}); err != nil {
			return err
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	targetUser := actor.UserID
	if params.UserID != uuid.Nil && params.UserID != actor.UserID {
		if !actor.isStaff() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another user's reservations")
		}
		targetUser = params.UserID
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		userID: targetUser,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	return &ListResult{Items: rows, Cursor: nextCursor}, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}

	var result *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		reservation, err := txRepo.FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.UserID != actor.UserID && !actor.isStaff() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		if reservation.Status == enums.ReservationStatusCanceled {
			result = reservation
			return nil
		}
		if reservation.Status != enums.ReservationStatusBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only booked reservations can be canceled")
		}

		priorStatus := reservation.Status
		if err := txRepo.Update(ctx, reservation.ID, map[string]any{
			"status": enums.ReservationStatusCanceled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation status")
		}
		reservation.Status = enums.ReservationStatusCanceled

		now := time.Now()
		event := outbox.DomainEvent{
			EventType:     enums.EventReservationCanceled,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.ReservationCanceledEvent{
				ReservationID: reservation.ID,
				UserID:        reservation.UserID,
				PriorStatus:   priorStatus,
				CanceledAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if err := s.record(ctx, tx, actor, "reservation.cancel", reservation.ID, nil); err != nil {
			return err
		}

		result = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Seat flips a booked reservation to seated when the party arrives. Staff only.
func (s *service) Seat(ctx context.Context, actor Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}

	var result *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		reservation, err := txRepo.FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.Status != enums.ReservationStatusBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only booked reservations can be seated")
		}

		if err := txRepo.Update(ctx, reservation.ID, map[string]any{
			"status": enums.ReservationStatusSeated,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation status")
		}
		reservation.Status = enums.ReservationStatusSeated

		if err := s.record(ctx, tx, actor, "reservation.seat", reservation.ID, nil); err != nil {
			return err
		}

		result = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actor Actor, action string, reservationID uuid.UUID, metadata map[string]any) error {
	if s.audit == nil {
		return nil
	}
	actorID := actor.UserID
	return s.audit.Record(ctx, tx, audit.Entry{
		ActorID:    &actorID,
		Action:     action,
		EntityType: "reservation",
		EntityID:   &reservationID,
		Metadata:   metadata,
	})
}
