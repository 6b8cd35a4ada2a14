package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
  item_id TEXT PRIMARY KEY,
  qty_on_hand INTEGER,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'placed',
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  completed_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  name TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newOrdersTestService(t *testing.T, db *gorm.DB) Service {
	return newOrdersTestServiceWithAuditor(t, db, nil)
}

func newOrdersTestServiceWithAuditor(t *testing.T, db *gorm.DB, auditor auditRecorder) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(db),
		inventory.NewRepository(db),
		gormTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), nil),
		auditor,
	)
	require.NoError(t, err)
	return svc
}

func seedInventory(t *testing.T, db *gorm.DB, itemID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.InventoryItem{ItemID: itemID, QtyOnHand: &qty}).Error)
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, status enums.OrderStatus, lines []models.OrderLineItem) uuid.UUID {
	t.Helper()

	orderID := uuid.New()
	require.NoError(t, db.Create(&models.Order{
		ID:            orderID,
		UserID:        userID,
		Status:        status,
		SubtotalCents: 1000,
		TaxCents:      80,
		TotalCents:    1080,
	}).Error)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = orderID
		require.NoError(t, db.Create(&lines[i]).Error)
	}
	return orderID
}

func currentStock(t *testing.T, db *gorm.DB, itemID uuid.UUID) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, db.First(&item, "item_id = ?", itemID).Error)
	require.NotNil(t, item.QtyOnHand)
	return *item.QtyOnHand
}

func TestCancelRestoresInventory(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	itemID := uuid.New()
	seedInventory(t, db, itemID, 3)

	userID := uuid.New()
	orderID := seedOrder(t, db, userID, enums.OrderStatusPlaced, []models.OrderLineItem{
		{ItemID: itemID, Name: "Enchiladas", Quantity: 2, UnitPriceCents: 500, LineTotalCents: 1000},
	})

	canceled, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: userID, Role: enums.RoleMember},
		Reason:  "changed my mind",
	})
	require.NoError(t, err)
	require.NotNil(t, canceled)
	assert.Equal(t, enums.OrderStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)

	assert.Equal(t, 5, currentStock(t, db, itemID))

	var event models.OutboxEvent
	require.NoError(t, db.First(&event, "aggregate_id = ?", orderID).Error)
	assert.Equal(t, enums.EventOrderCanceled, event.EventType)
}

func TestCancelUntrackedLineLeavesNoInventoryRow(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	orderID := seedOrder(t, db, userID, enums.OrderStatusPlaced, []models.OrderLineItem{
		{ItemID: uuid.New(), Name: "Agua Fresca", Quantity: 1, UnitPriceCents: 400, LineTotalCents: 400},
	})

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: userID, Role: enums.RoleMember},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.InventoryItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCancelRejectsNonPlacedOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	orderID := seedOrder(t, db, userID, enums.OrderStatusCanceled, nil)

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: userID, Role: enums.RoleMember},
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelHidesForeignOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	itemID := uuid.New()
	seedInventory(t, db, itemID, 3)
	orderID := seedOrder(t, db, uuid.New(), enums.OrderStatusPlaced, []models.OrderLineItem{
		{ItemID: itemID, Name: "Enchiladas", Quantity: 2, UnitPriceCents: 500, LineTotalCents: 1000},
	})

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: uuid.New(), Role: enums.RoleMember},
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, 3, currentStock(t, db, itemID))
}

func TestStaffCanCancelAnyOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	orderID := seedOrder(t, db, uuid.New(), enums.OrderStatusPlaced, nil)

	canceled, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: uuid.New(), Role: enums.RoleStaff},
		Reason:  "kitchen closed early",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, canceled.Status)
}

func TestCompleteRequiresStaffRole(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	orderID := seedOrder(t, db, userID, enums.OrderStatusPlaced, nil)

	_, err := svc.Complete(ctx, Actor{UserID: userID, Role: enums.RoleMember}, orderID)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCompleteMarksOrderServed(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	orderID := seedOrder(t, db, uuid.New(), enums.OrderStatusPlaced, nil)

	completed, err := svc.Complete(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	var event models.OutboxEvent
	require.NoError(t, db.First(&event, "aggregate_id = ?", orderID).Error)
	assert.Equal(t, enums.EventOrderCompleted, event.EventType)

	// second call reports success without another event
	again, err := svc.Complete(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, again.Status)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCompleteRejectsCanceledOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	orderID := seedOrder(t, db, uuid.New(), enums.OrderStatusCanceled, nil)

	_, err := svc.Complete(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, orderID)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestGetHidesForeignOrderFromMembers(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	orderID := seedOrder(t, db, owner, enums.OrderStatusPlaced, nil)

	_, err := svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.RoleMember}, orderID)
	require.Error(t, err)

	found, err := svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, found.ID)

	own, err := svc.Get(ctx, Actor{UserID: owner, Role: enums.RoleMember}, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, own.ID)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 3; i++ {
		orderID := seedOrder(t, db, userID, enums.OrderStatusPlaced, nil)
		require.NoError(t, db.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	// another user's order never shows up
	seedOrder(t, db, uuid.New(), enums.OrderStatusPlaced, nil)

	actor := Actor{UserID: userID, Role: enums.RoleMember}

	first, err := svc.List(ctx, actor, ListParams{})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Empty(t, first.Cursor)
	assert.True(t, first.Items[0].CreatedAt.After(first.Items[2].CreatedAt))

	paged, err := svc.List(ctx, actor, ListParams{Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged.Items, 2)
	require.NotEmpty(t, paged.Cursor)

	rest, err := svc.List(ctx, actor, ListParams{Params: pkgpagination.Params{Limit: 2, Cursor: paged.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)
}

func TestListForbidsScopingToAnotherUser(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersTestService(t, db)
	ctx := context.Background()

	other := uuid.New()
	seedOrder(t, db, other, enums.OrderStatusPlaced, nil)

	_, err := svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.RoleMember}, ListParams{UserID: other})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	staffView, err := svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, ListParams{UserID: other})
	require.NoError(t, err)
	assert.Len(t, staffView.Items, 1)
}

func TestCancelRecordsAuditEntry(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	auditor := &recordingAuditor{}
	svc := newOrdersTestServiceWithAuditor(t, db, auditor)
	ctx := context.Background()

	userID := uuid.New()
	orderID := seedOrder(t, db, userID, enums.OrderStatusPlaced, nil)

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID: orderID,
		Actor:   Actor{UserID: userID, Role: enums.RoleMember},
		Reason:  "ordered twice",
	})
	require.NoError(t, err)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, "order.cancel", entry.Action)
	assert.Equal(t, "order", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, orderID, *entry.EntityID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, userID, *entry.ActorID)
	assert.Equal(t, "ordered twice", entry.Metadata.(map[string]any)["reason"])
}

func TestCompleteRecordsAuditEntry(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	auditor := &recordingAuditor{}
	svc := newOrdersTestServiceWithAuditor(t, db, auditor)
	ctx := context.Background()

	staffID := uuid.New()
	orderID := seedOrder(t, db, uuid.New(), enums.OrderStatusPlaced, nil)

	_, err := svc.Complete(ctx, Actor{UserID: staffID, Role: enums.RoleStaff}, orderID)
	require.NoError(t, err)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, "order.complete", entry.Action)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, orderID, *entry.EntityID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, staffID, *entry.ActorID)

	// an already-completed order replays without a second entry
	_, err = svc.Complete(ctx, Actor{UserID: staffID, Role: enums.RoleStaff}, orderID)
	require.NoError(t, err)
	assert.Len(t, auditor.entries, 1)
}
