package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// View is the caller-facing snapshot of a cart after any mutation: the
// surviving lines, recomputed totals, the conflict partition, and the token
// the client must use from now on.
type View struct {
	CartID        uuid.UUID       `json:"cart_id"`
	Token         string          `json:"token"`
	Lines         []Line          `json:"lines"`
	SubtotalCents int             `json:"subtotal_cents"`
	TaxCents      int             `json:"tax_cents"`
	TotalCents    int             `json:"total_cents"`
	Dropped       []ConflictEntry `json:"dropped"`
	Clamped       []ConflictEntry `json:"clamped"`
	Merged        []ConflictEntry `json:"merged"`
}

// AttachResult is the outcome of binding an anonymous cart to a user at
// login. A nil result with a nil error means the attach was a no-op.
type AttachResult = View

// Service drives cart consolidation and persistence.
type Service interface {
	Attach(ctx context.Context, token string, userID uuid.UUID) (*AttachResult, error)
	Submit(ctx context.Context, token string, incoming []Line) (*View, error)
	Get(ctx context.Context, token string) (*View, error)
}

type service struct {
	carts      CartRepository
	inv        inventory.Store
	tx         txRunner
	events     eventEmitter
	pricing    *Pricing
	tokenBytes int
	logg       *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(carts CartRepository, inv inventory.Store, tx txRunner, events eventEmitter, pricing *Pricing, tokenBytes int, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if pricing == nil {
		return nil, fmt.Errorf("pricing required")
	}
	return &service{
		carts:      carts,
		inv:        inv,
		tx:         tx,
		events:     events,
		pricing:    pricing,
		tokenBytes: tokenBytes,
		logg:       logg,
	}, nil
}

// Attach claims the anonymous cart identified by token for userID, folding
// its lines into the user's pre-existing cart when one exists. The whole
// protocol runs in one transaction: the caller observes either the full
// merge applied, or nothing. A token owned by a different user is a silent
// no-op so login never fails over a stale cart token.
func (s *service) Attach(ctx context.Context, token string, userID uuid.UUID) (*AttachResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	var result *AttachResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		inv := s.inv.WithTx(tx)

		// The row lock on the token read serializes concurrent attaches for
		// the same anonymous cart.
		anon, err := carts.FindByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if anon.UserID != nil && *anon.UserID != userID {
			return nil
		}

		var userCart *models.Cart
		existing, err := carts.FindByUserForUpdate(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && existing.ID != anon.ID {
			userCart = existing
		}

		incoming := modelsToLines(anon.Lines)
		var existingLines []Line
		if userCart != nil {
			existingLines = modelsToLines(userCart.Lines)
		} else if anon.UserID != nil {
			// Idempotent retry: the cart is already ours, revalidate in place.
			incoming, existingLines = nil, incoming
		}

		snapshot, err := inv.GetSnapshot(ctx, unionItemIDs(incoming, existingLines))
		if err != nil {
			return err
		}

		merged, err := Merge(incoming, existingLines, snapshot)
		if err != nil {
			return err
		}

		dest := anon
		if userCart != nil {
			dest = userCart
		}

		newToken, err := NewToken(s.tokenBytes)
		if err != nil {
			return err
		}

		if err := carts.ReplaceLines(ctx, dest.ID, linesToModels(merged.Lines)); err != nil {
			return err
		}
		subtotal, tax, total := s.pricing.Totals(merged.Lines)
		if err := carts.UpdateTotals(ctx, dest.ID, subtotal, tax, total); err != nil {
			return err
		}

		if userCart != nil {
			if err := carts.RotateToken(ctx, dest.ID, newToken); err != nil {
				return err
			}
			if err := carts.Delete(ctx, anon.ID); err != nil {
				return err
			}
		} else {
			if err := carts.Reassign(ctx, dest.ID, userID, newToken); err != nil {
				return err
			}
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventCartAttached,
				AggregateType: enums.AggregateCart,
				AggregateID:   dest.ID,
				Actor:         &outbox.ActorRef{UserID: userID},
				Data: payloads.CartAttachedEvent{
					CartID:     dest.ID,
					UserID:     userID,
					LineCount:  len(merged.Lines),
					AttachedAt: time.Now().UTC(),
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		result = &AttachResult{
			CartID:        dest.ID,
			Token:         newToken,
			Lines:         merged.Lines,
			SubtotalCents: subtotal,
			TaxCents:      tax,
			TotalCents:    total,
			Dropped:       merged.Dropped,
			Clamped:       merged.Clamped,
			Merged:        merged.Merged,
		}
		return nil
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "cart attach failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching cart")
	}
	return result, nil
}

// Submit merges incoming lines into the cart behind token, creating an
// anonymous cart when the token is blank or unknown. Every call rotates the
// token; the caller is responsible for propagating the fresh value.
func (s *service) Submit(ctx context.Context, token string, incoming []Line) (*View, error) {
	token = strings.TrimSpace(token)

	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		inv := s.inv.WithTx(tx)

		var target *models.Cart
		if token != "" {
			found, err := carts.FindByTokenForUpdate(ctx, token)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			target = found
		}
		if target == nil {
			freshToken, err := NewToken(s.tokenBytes)
			if err != nil {
				return err
			}
			created, err := carts.Create(ctx, &models.Cart{Token: freshToken})
			if err != nil {
				return err
			}
			target = created
		}

		existingLines := modelsToLines(target.Lines)
		snapshot, err := inv.GetSnapshot(ctx, unionItemIDs(incoming, existingLines))
		if err != nil {
			return err
		}

		merged, err := Merge(incoming, existingLines, snapshot)
		if err != nil {
			return err
		}

		if err := carts.ReplaceLines(ctx, target.ID, linesToModels(merged.Lines)); err != nil {
			return err
		}
		subtotal, tax, total := s.pricing.Totals(merged.Lines)
		if err := carts.UpdateTotals(ctx, target.ID, subtotal, tax, total); err != nil {
			return err
		}

		newToken, err := NewToken(s.tokenBytes)
		if err != nil {
			return err
		}
		if err := carts.RotateToken(ctx, target.ID, newToken); err != nil {
			return err
		}

		view = &View{
			CartID:        target.ID,
			Token:         newToken,
			Lines:         merged.Lines,
			SubtotalCents: subtotal,
			TaxCents:      tax,
			TotalCents:    total,
			Dropped:       merged.Dropped,
			Clamped:       merged.Clamped,
			Merged:        merged.Merged,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submitting cart lines")
	}
	return view, nil
}

// Get returns the cart behind token without mutating it.
func (s *service) Get(ctx context.Context, token string) (*View, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	cart, err := s.carts.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return &View{
		CartID:        cart.ID,
		Token:         cart.Token,
		Lines:         modelsToLines(cart.Lines),
		SubtotalCents: cart.SubtotalCents,
		TaxCents:      cart.TaxCents,
		TotalCents:    cart.TotalCents,
		Dropped:       []ConflictEntry{},
		Clamped:       []ConflictEntry{},
		Merged:        []ConflictEntry{},
	}, nil
}

func unionItemIDs(sets ...[]Line) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := []uuid.UUID{}
	for _, set := range sets {
		for _, line := range set {
			if _, ok := seen[line.ItemID]; ok {
				continue
			}
			seen[line.ItemID] = struct{}{}
			out = append(out, line.ItemID)
		}
	}
	return out
}

func modelsToLines(rows []models.CartLine) []Line {
	out := make([]Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, Line{
			ItemID:         row.ItemID,
			Notes:          row.Notes,
			Name:           row.Name,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			LineTotalCents: row.LineTotalCents,
		})
	}
	return out
}

func linesToModels(lines []Line) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.CartLine{
			ItemID:         line.ItemID,
			Notes:          line.Notes,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		})
	}
	return out
}
