package reservations

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

func setupReservationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  party_size INTEGER NOT NULL,
  reserved_for DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'booked',
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
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
		`CREATE TABLE IF NOT EXISTS audit_entries (
  id TEXT PRIMARY KEY,
  actor_id TEXT,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT,
  metadata TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newReservationsTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	auditor, err := audit.NewService(audit.NewRepository(db), nil)
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), nil),
		auditor,
	)
	require.NoError(t, err)
	return svc
}

func memberActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleMember}
}

func TestBookCreatesReservationWithEvent(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()

	actor := memberActor()
	reservedFor := time.Now().Add(2 * time.Hour)
	booked, err := svc.Book(ctx, actor, BookInput{
		PartySize:   4,
		ReservedFor: reservedFor,
	})
	require.NoError(t, err)
	require.NotNil(t, booked)
	assert.Equal(t, enums.ReservationStatusBooked, booked.Status)
	assert.Equal(t, actor.UserID, booked.UserID)

	var event models.OutboxEvent
	require.NoError(t, db.First(&event, "aggregate_id = ?", booked.ID).Error)
	assert.Equal(t, enums.EventReservationBooked, event.EventType)
	assert.Equal(t, enums.AggregateReservation, event.AggregateType)

	var entry models.AuditEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "reservation.book", entry.Action)
}

func TestBookValidatesPartySizeAndWindow(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()
	actor := memberActor()

	cases := []struct {
		name  string
		input BookInput
	}{
		{"zero party", BookInput{PartySize: 0, ReservedFor: time.Now().Add(2 * time.Hour)}},
		{"oversized party", BookInput{PartySize: 13, ReservedFor: time.Now().Add(2 * time.Hour)}},
		{"too soon", BookInput{PartySize: 2, ReservedFor: time.Now().Add(5 * time.Minute)}},
		{"too far out", BookInput{PartySize: 2, ReservedFor: time.Now().Add(120 * 24 * time.Hour)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, actor, tc.input)
			require.Error(t, err)

			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestCancelOwnReservation(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()

	actor := memberActor()
	booked, err := svc.Book(ctx, actor, BookInput{PartySize: 2, ReservedFor: time.Now().Add(3 * time.Hour)})
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, actor, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCanceled, canceled.Status)

	var events []models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", booked.ID).Order("created_at ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, enums.EventReservationCanceled, events[1].EventType)

	// repeat cancel is a quiet no-op
	again, err := svc.Cancel(ctx, actor, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCanceled, again.Status)
}

func TestCancelHidesForeignReservation(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()

	owner := memberActor()
	booked, err := svc.Book(ctx, owner, BookInput{PartySize: 2, ReservedFor: time.Now().Add(3 * time.Hour)})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, memberActor(), booked.ID)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	// staff can cancel on the guest's behalf
	_, err = svc.Cancel(ctx, Actor{UserID: uuid.New(), Role: enums.RoleStaff}, booked.ID)
	require.NoError(t, err)
}

func TestSeatRequiresStaffAndBookedStatus(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()

	owner := memberActor()
	booked, err := svc.Book(ctx, owner, BookInput{PartySize: 6, ReservedFor: time.Now().Add(3 * time.Hour)})
	require.NoError(t, err)

	_, err = svc.Seat(ctx, owner, booked.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	staff := Actor{UserID: uuid.New(), Role: enums.RoleStaff}
	seated, err := svc.Seat(ctx, staff, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusSeated, seated.Status)

	_, err = svc.Seat(ctx, staff, booked.ID)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListScopesToOwnerAndPaginates(t *testing.T) {
	t.Parallel()

	db := setupReservationsTestDB(t)
	svc := newReservationsTestService(t, db)
	ctx := context.Background()

	actor := memberActor()
	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 3; i++ {
		booked, err := svc.Book(ctx, actor, BookInput{PartySize: 2, ReservedFor: time.Now().Add(3 * time.Hour)})
		require.NoError(t, err)
		require.NoError(t, db.Model(&models.Reservation{}).
			Where("id = ?", booked.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	_, err := svc.Book(ctx, memberActor(), BookInput{PartySize: 2, ReservedFor: time.Now().Add(3 * time.Hour)})
	require.NoError(t, err)

	page, err := svc.List(ctx, actor, ListParams{Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := svc.List(ctx, actor, ListParams{Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)

	_, err = svc.List(ctx, actor, ListParams{UserID: uuid.New()})
	require.Error(t, err)
}
