package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/security"
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
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'member',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func newRegisterTestService(t *testing.T, db *gorm.DB) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             gormTxRunner{db: db},
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterCreatesMemberAccount(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterTestService(t, db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Dana",
		LastName:  "Diner",
		Email:     " Dana@Example.COM ",
		Password:  "table-for-two",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "dana@example.com", resp.User.Email)
	assert.Equal(t, enums.RoleMember, resp.User.Role)
	assert.True(t, resp.User.IsActive)

	var row models.User
	require.NoError(t, db.First(&row, "email = ?", "dana@example.com").Error)
	valid, err := security.VerifyPassword("table-for-two", row.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterTestService(t, db)
	ctx := context.Background()

	req := RegisterRequest{
		FirstName: "Dana",
		LastName:  "Diner",
		Email:     "dana@example.com",
		Password:  "table-for-two",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "DANA@example.com"
	_, err = svc.Register(ctx, req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterValidatesInput(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterTestService(t, db)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{
			name: "blank email",
			req:  RegisterRequest{FirstName: "A", LastName: "B", Email: "  ", Password: "table-for-two"},
		},
		{
			name: "short password",
			req:  RegisterRequest{FirstName: "A", LastName: "B", Email: "a@example.com", Password: "short"},
		},
		{
			name: "missing name",
			req:  RegisterRequest{FirstName: " ", LastName: "B", Email: "a@example.com", Password: "table-for-two"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}
