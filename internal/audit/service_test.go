package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:audit_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS audit_entries (
  id TEXT PRIMARY KEY,
  actor_id TEXT,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT,
  metadata TEXT,
  created_at DATETIME
);`).Error)
	return db
}

func newAuditTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), nil)
	require.NoError(t, err)
	return svc
}

func TestRecordPersistsEntryWithMetadata(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)
	ctx := context.Background()

	actorID := uuid.New()
	entityID := uuid.New()
	err := svc.Record(ctx, nil, Entry{
		ActorID:    &actorID,
		Action:     "menu_item.update",
		EntityType: "menu_item",
		EntityID:   &entityID,
		Metadata:   map[string]any{"price_cents": 1200},
	})
	require.NoError(t, err)

	var row models.AuditEntry
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "menu_item.update", row.Action)
	assert.Equal(t, "menu_item", row.EntityType)
	require.NotNil(t, row.ActorID)
	assert.Equal(t, actorID, *row.ActorID)
	assert.JSONEq(t, `{"price_cents":1200}`, string(row.Metadata))
}

func TestRecordJoinsCallerTransaction(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)
	ctx := context.Background()

	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, svc.Record(ctx, tx, Entry{Action: "order.cancel", EntityType: "order"}))
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, db.Model(&models.AuditEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordRejectsBlankAction(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)

	err := svc.Record(context.Background(), nil, Entry{Action: "  ", EntityType: "order"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListRequiresAdmin(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)

	_, err := svc.List(context.Background(), enums.RoleStaff, ListParams{})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListFiltersAndPaginates(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)
	ctx := context.Background()

	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 3; i++ {
		row := models.AuditEntry{
			ID:         uuid.New(),
			Action:     "menu_item.create",
			EntityType: "menu_item",
		}
		require.NoError(t, db.Create(&row).Error)
		require.NoError(t, db.Model(&models.AuditEntry{}).
			Where("id = ?", row.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	require.NoError(t, db.Create(&models.AuditEntry{
		ID:         uuid.New(),
		Action:     "order.cancel",
		EntityType: "order",
	}).Error)

	filtered, err := svc.List(ctx, enums.RoleAdmin, ListParams{Action: "menu_item.create"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 3)

	paged, err := svc.List(ctx, enums.RoleAdmin, ListParams{
		Action: "menu_item.create",
		Params: pkgpagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, paged.Items, 2)
	require.NotEmpty(t, paged.Cursor)

	rest, err := svc.List(ctx, enums.RoleAdmin, ListParams{
		Action: "menu_item.create",
		Params: pkgpagination.Params{Limit: 2, Cursor: paged.Cursor},
	})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)
}

func TestTrimOlderThanRemovesOnlyStaleRows(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	svc := newAuditTestService(t, db)
	ctx := context.Background()

	stale := models.AuditEntry{ID: uuid.New(), Action: "a", EntityType: "order"}
	fresh := models.AuditEntry{ID: uuid.New(), Action: "b", EntityType: "order"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Model(&models.AuditEntry{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-100*24*time.Hour)).Error)

	removed, err := svc.TrimOlderThan(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var count int64
	require.NoError(t, db.Model(&models.AuditEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
