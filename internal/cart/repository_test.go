package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cartRecords := `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(cartRecords).Error)
	require.NoError(t, conn.Exec(cartItems).Error)
	return conn
}

func TestRepositoryReplaceItemsPreservesPosition(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	record, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	productA := uuid.New()
	productB := uuid.New()
	productC := uuid.New()

	err = repo.ReplaceItems(ctx, record.ID, []models.CartItem{
		{ProductID: productB, Quantity: 1},
		{ProductID: productA, Quantity: 2},
		{ProductID: productC, Quantity: 3},
	})
	require.NoError(t, err)

	loaded, err := repo.FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Items, 3)

	assert.Equal(t, productB, loaded.Items[0].ProductID)
	assert.Equal(t, productA, loaded.Items[1].ProductID)
	assert.Equal(t, productC, loaded.Items[2].ProductID)
	assert.Equal(t, 0, loaded.Items[0].Position)
	assert.Equal(t, 2, loaded.Items[2].Position)

	// replacing again drops the old lines entirely
	err = repo.ReplaceItems(ctx, record.ID, []models.CartItem{
		{ProductID: productC, Quantity: 5},
	})
	require.NoError(t, err)

	loaded, err = repo.FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, productC, loaded.Items[0].ProductID)
	assert.Equal(t, 5, loaded.Items[0].Quantity)
}

func TestRepositoryFindActiveReturnsNilWhenMissing(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	record, err := repo.FindActiveByUserID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRepositoryMarkConverted(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	record, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.MarkConverted(ctx, record.ID, now))

	// the converted cart no longer shows up as active
	active, err := repo.FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, active)

	// second conversion hits zero rows
	err = repo.MarkConverted(ctx, record.ID, now)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryClearItems(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	record, err := repo.CreateActive(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceItems(ctx, record.ID, []models.CartItem{
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 2},
	}))

	require.NoError(t, repo.ClearItems(ctx, record.ID))

	loaded, err := repo.FindActiveByUserID(ctx, record.UserID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Empty(t, loaded.Items)
}
