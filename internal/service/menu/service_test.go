package menu

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/cache"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/entity"
	menurepo "github.com/hashmato/pos/internal/repository/menu"
	"github.com/hashmato/pos/pkg/errorbank"
)

func newTestService(t *testing.T) (*Service, *database.Connections) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*entity.MenuItem)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	conns := &database.Connections{Writer: db, Reader: db}
	svc := NewService(Params{
		Repository: menurepo.NewRepository(conns),
		Cache:      cache.NoopStore{},
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
	return svc, conns
}

func TestCreateMenuItem(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.Create(context.Background(), "  Nasi Lemak ", 4.50, "")
	require.NoError(t, err)
	assert.Greater(t, item.ID, int64(0))
	assert.Equal(t, "Nasi Lemak", item.Name)
	assert.True(t, item.Available)
}

func TestCreateMenuItemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ", 1.00, "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Create(ctx, "Free Lunch", -0.01, "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestAvailable(t *testing.T) {
	svc, conns := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	onMenu := &entity.MenuItem{Name: "Laksa", Price: 6, Available: true, CreatedAt: now, UpdatedAt: now}
	offMenu := &entity.MenuItem{Name: "Oyster Omelette", Price: 8, Available: false, CreatedAt: now, UpdatedAt: now}
	for _, item := range []*entity.MenuItem{onMenu, offMenu} {
		_, err := conns.Writer.NewInsert().Model(item).Exec(ctx)
		require.NoError(t, err)
	}

	available, err := svc.Available(ctx, onMenu.ID)
	require.NoError(t, err)
	assert.True(t, available)

	available, err = svc.Available(ctx, offMenu.ID)
	require.NoError(t, err)
	assert.False(t, available)

	// A missing item is not an error, just unavailable.
	available, err = svc.Available(ctx, 999)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestListAvailableFiltersHiddenItems(t *testing.T) {
	svc, conns := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	items := []*entity.MenuItem{
		{Name: "Kaya Toast", Price: 2.2, Available: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Retired Dish", Price: 9.9, Available: false, CreatedAt: now, UpdatedAt: now},
	}
	for _, item := range items {
		_, err := conns.Writer.NewInsert().Model(item).Exec(ctx)
		require.NoError(t, err)
	}

	listed, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Kaya Toast", listed[0].Name)
}
