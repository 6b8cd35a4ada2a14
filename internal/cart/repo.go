package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
)

// CartRepository is the persistence surface the cart service depends on.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByToken(ctx context.Context, token string) (*models.Cart, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ReplaceLines(ctx context.Context, cartID uuid.UUID, lines []models.CartLine) error
	Reassign(ctx context.Context, cartID uuid.UUID, userID uuid.UUID, token string) error
	RotateToken(ctx context.Context, cartID uuid.UUID, token string) error
	UpdateTotals(ctx context.Context, cartID uuid.UUID, subtotal, tax, total int) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	DeleteStaleAnonymous(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart row.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByToken loads a cart and its lines by opaque token.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("token = ?", token).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByTokenForUpdate loads a cart by token holding a row lock so concurrent
// attach calls against the same token serialize.
func (r *Repository) FindByTokenForUpdate(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	err := r.lockedQuery(ctx).
		Where("token = ?", token).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&cart.Lines).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByUser loads the user's open cart, if any.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByUserForUpdate loads the user's open cart under a row lock.
func (r *Repository) FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.lockedQuery(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&cart.Lines).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// lockedQuery applies SELECT ... FOR UPDATE on dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func (r *Repository) lockedQuery(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// ReplaceLines swaps the cart's full line set. Delete-then-insert keeps the
// stored set exactly equal to the merge output, never patched line-by-line.
func (r *Repository) ReplaceLines(ctx context.Context, cartID uuid.UUID, lines []models.CartLine) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		lines[i].CartID = cartID
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// Reassign binds the cart to a user and rotates its token in one update.
func (r *Repository) Reassign(ctx context.Context, cartID uuid.UUID, userID uuid.UUID, token string) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"user_id": userID,
			"token":   token,
		}).Error
}

// RotateToken issues a fresh token for the cart.
func (r *Repository) RotateToken(ctx context.Context, cartID uuid.UUID, token string) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("token", token).Error
}

// UpdateTotals persists recomputed totals.
func (r *Repository) UpdateTotals(ctx context.Context, cartID uuid.UUID, subtotal, tax, total int) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"subtotal_cents": subtotal,
			"tax_cents":      tax,
			"total_cents":    total,
		}).Error
}

// Delete removes the cart and, via cascade, its lines.
func (r *Repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}

// DeleteStaleAnonymous removes anonymous carts idle since before the cutoff.
// Used by the sweep job.
func (r *Repository) DeleteStaleAnonymous(ctx context.Context, cutoff time.Time) (int64, error) {
	err := r.db.WithContext(ctx).
		Where("cart_id IN (?)", r.db.
			Model(&models.Cart{}).
			Select("id").
			Where("user_id IS NULL AND updated_at < ?", cutoff)).
		Delete(&models.CartLine{}).Error
	if err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).
		Where("user_id IS NULL AND updated_at < ?", cutoff).
		Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
