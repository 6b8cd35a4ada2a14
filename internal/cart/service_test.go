package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type failingEmitter struct{}

func (failingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return errors.New("emit failed")
}

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  allergens TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
  item_id TEXT PRIMARY KEY,
  qty_on_hand INTEGER,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  user_id TEXT UNIQUE,
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCartTestService(t *testing.T, db *gorm.DB, events eventEmitter) Service {
	t.Helper()

	pricing, err := NewPricing("0.08")
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		inventory.NewRepository(db),
		gormTxRunner{db: db},
		events,
		pricing,
		32,
		nil,
	)
	require.NoError(t, err)
	return svc
}

func seedCartMenuItem(t *testing.T, db *gorm.DB, id uuid.UUID, name string, priceCents int, qty *int) {
	t.Helper()
	require.NoError(t, db.Create(&models.MenuItem{
		ID:         id,
		Name:       name,
		Category:   enums.MenuCategoryEntree,
		PriceCents: priceCents,
		IsActive:   true,
	}).Error)
	if qty != nil {
		require.NoError(t, db.Create(&models.InventoryItem{ItemID: id, QtyOnHand: qty}).Error)
	}
}

func seedCart(t *testing.T, db *gorm.DB, id uuid.UUID, token string, userID *uuid.UUID, lines []models.CartLine) {
	t.Helper()
	require.NoError(t, db.Create(&models.Cart{ID: id, Token: token, UserID: userID}).Error)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].CartID = id
		require.NoError(t, db.Create(&lines[i]).Error)
	}
}

func TestAttachMergesAnonIntoUserCart(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)
	ctx := context.Background()

	itemA := uuid.New()
	itemB := uuid.New()
	qtyA := 2
	seedCartMenuItem(t, db, itemA, "Chilaquiles", 1000, &qtyA)
	seedCartMenuItem(t, db, itemB, "Agua Fresca", 400, nil) // untracked, drops at merge

	userID := uuid.New()
	userCartID := uuid.New()
	anonCartID := uuid.New()
	seedCart(t, db, userCartID, "user-tok", &userID, []models.CartLine{
		{ItemID: itemA, Name: "Chilaquiles", Quantity: 1, UnitPriceCents: 1000, LineTotalCents: 1000},
	})
	seedCart(t, db, anonCartID, "anon-tok", nil, []models.CartLine{
		{ItemID: itemA, Name: "Chilaquiles", Quantity: 3, UnitPriceCents: 1000, LineTotalCents: 3000},
		{ItemID: itemB, Name: "Agua Fresca", Quantity: 2, UnitPriceCents: 400, LineTotalCents: 800},
	})

	result, err := svc.Attach(ctx, "anon-tok", userID)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, userCartID, result.CartID)
	assert.NotEmpty(t, result.Token)
	assert.NotEqual(t, "user-tok", result.Token)
	assert.NotEqual(t, "anon-tok", result.Token)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, itemA, result.Lines[0].ItemID)
	assert.Equal(t, 2, result.Lines[0].Quantity)

	require.Len(t, result.Clamped, 1)
	assert.Equal(t, 4, result.Clamped[0].RequestedQty)
	assert.Equal(t, 2, result.Clamped[0].AppliedQty)
	require.Len(t, result.Merged, 1)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, itemB, result.Dropped[0].ItemID)

	assert.Equal(t, 2000, result.SubtotalCents)
	assert.Equal(t, 160, result.TaxCents)
	assert.Equal(t, 2160, result.TotalCents)

	// anonymous cart row and its lines are gone
	var count int64
	require.NoError(t, db.Model(&models.Cart{}).Where("id = ?", anonCartID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.CartLine{}).Where("cart_id = ?", anonCartID).Count(&count).Error)
	assert.Zero(t, count)

	var persisted models.Cart
	require.NoError(t, db.Preload("Lines").First(&persisted, "id = ?", userCartID).Error)
	assert.Equal(t, result.Token, persisted.Token)
	assert.Equal(t, 2000, persisted.SubtotalCents)
	require.Len(t, persisted.Lines, 1)
	assert.Equal(t, 2, persisted.Lines[0].Quantity)
}

func TestAttachUnknownTokenIsNoOp(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)

	result, err := svc.Attach(context.Background(), "missing-tok", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAttachForeignOwnerIsNoOp(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)
	ctx := context.Background()

	item := uuid.New()
	qty := 5
	seedCartMenuItem(t, db, item, "Tortas", 900, &qty)

	owner := uuid.New()
	cartID := uuid.New()
	seedCart(t, db, cartID, "owned-tok", &owner, []models.CartLine{
		{ItemID: item, Name: "Tortas", Quantity: 2, UnitPriceCents: 900, LineTotalCents: 1800},
	})

	result, err := svc.Attach(ctx, "owned-tok", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, result)

	// the owner's cart is untouched
	var persisted models.Cart
	require.NoError(t, db.Preload("Lines").First(&persisted, "id = ?", cartID).Error)
	assert.Equal(t, "owned-tok", persisted.Token)
	require.Len(t, persisted.Lines, 1)
	assert.Equal(t, 2, persisted.Lines[0].Quantity)
}

func TestAttachRollsBackCompletelyOnFailure(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, failingEmitter{})
	ctx := context.Background()

	item := uuid.New()
	qty := 10
	seedCartMenuItem(t, db, item, "Pozole", 1100, &qty)

	userID := uuid.New()
	userCartID := uuid.New()
	anonCartID := uuid.New()
	seedCart(t, db, userCartID, "user-tok", &userID, []models.CartLine{
		{ItemID: item, Name: "Pozole", Quantity: 1, UnitPriceCents: 1100, LineTotalCents: 1100},
	})
	seedCart(t, db, anonCartID, "anon-tok", nil, []models.CartLine{
		{ItemID: item, Name: "Pozole", Quantity: 2, UnitPriceCents: 1100, LineTotalCents: 2200},
	})

	_, err := svc.Attach(ctx, "anon-tok", userID)
	require.Error(t, err)

	// both carts must be exactly as they were before the attach
	var userCart models.Cart
	require.NoError(t, db.Preload("Lines").First(&userCart, "id = ?", userCartID).Error)
	assert.Equal(t, "user-tok", userCart.Token)
	require.Len(t, userCart.Lines, 1)
	assert.Equal(t, 1, userCart.Lines[0].Quantity)

	var anonCart models.Cart
	require.NoError(t, db.Preload("Lines").First(&anonCart, "id = ?", anonCartID).Error)
	assert.Equal(t, "anon-tok", anonCart.Token)
	require.Len(t, anonCart.Lines, 1)
	assert.Equal(t, 2, anonCart.Lines[0].Quantity)
}

func TestAttachReownsAnonCartWhenUserHasNone(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)
	ctx := context.Background()

	item := uuid.New()
	qty := 5
	seedCartMenuItem(t, db, item, "Mole", 1400, &qty)

	anonCartID := uuid.New()
	seedCart(t, db, anonCartID, "anon-tok", nil, []models.CartLine{
		{ItemID: item, Name: "Mole", Quantity: 2, UnitPriceCents: 1400, LineTotalCents: 2800},
	})

	userID := uuid.New()
	result, err := svc.Attach(ctx, "anon-tok", userID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, anonCartID, result.CartID)
	assert.NotEqual(t, "anon-tok", result.Token)

	var persisted models.Cart
	require.NoError(t, db.First(&persisted, "id = ?", anonCartID).Error)
	require.NotNil(t, persisted.UserID)
	assert.Equal(t, userID, *persisted.UserID)
}

func TestSubmitCreatesCartForBlankToken(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)
	ctx := context.Background()

	item := uuid.New()
	qty := 3
	seedCartMenuItem(t, db, item, "Elote", 500, &qty)

	view, err := svc.Submit(ctx, "", []Line{{ItemID: item, Quantity: 2}})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.NotEmpty(t, view.Token)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, 500, view.Lines[0].UnitPriceCents)
	assert.Equal(t, 1000, view.SubtotalCents)
	assert.Equal(t, 80, view.TaxCents)

	// the returned token resolves to the persisted cart
	fetched, err := svc.Get(ctx, view.Token)
	require.NoError(t, err)
	assert.Equal(t, view.CartID, fetched.CartID)
	assert.NotEqual(t, uuid.Nil, fetched.CartID)
	require.Len(t, fetched.Lines, 1)
	assert.Equal(t, 2, fetched.Lines[0].Quantity)
	assert.Equal(t, 1000, fetched.SubtotalCents)
	assert.Equal(t, 1080, fetched.TotalCents)
}

func TestSubmitRotatesTokenEachCall(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db, nil)
	ctx := context.Background()

	item := uuid.New()
	qty := 10
	seedCartMenuItem(t, db, item, "Horchata", 350, &qty)

	cartID := uuid.New()
	seedCart(t, db, cartID, "first-tok", nil, nil)

	view, err := svc.Submit(ctx, "first-tok", []Line{{ItemID: item, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, cartID, view.CartID)
	assert.NotEqual(t, "first-tok", view.Token)

	// the old token no longer resolves
	_, err = svc.Get(ctx, "first-tok")
	require.Error(t, err)

	again, err := svc.Get(ctx, view.Token)
	require.NoError(t, err)
	assert.Equal(t, cartID, again.CartID)
}
