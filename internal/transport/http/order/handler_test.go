package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/broadcast"
	"github.com/hashmato/pos/internal/cache"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/entity"
	"github.com/hashmato/pos/internal/messaging"
	menurepo "github.com/hashmato/pos/internal/repository/menu"
	orderrepo "github.com/hashmato/pos/internal/repository/order"
	queuerepo "github.com/hashmato/pos/internal/repository/queue"
	menusvc "github.com/hashmato/pos/internal/service/menu"
	ordersvc "github.com/hashmato/pos/internal/service/order"
)

type fixture struct {
	echo  *echo.Echo
	conns *database.Connections
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*entity.MenuItem)(nil),
		(*entity.Order)(nil),
		(*entity.OrderItem)(nil),
		(*entity.QueueToken)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	conns := &database.Connections{Writer: db, Reader: db}
	cfg := config.Config{
		Broadcast: config.Broadcast{BufferSize: 8, PublishTimeout: time.Second},
	}
	logger := zap.NewNop()

	menu := menusvc.NewService(menusvc.Params{
		Repository: menurepo.NewRepository(conns),
		Cache:      cache.NoopStore{},
		Config:     cfg,
		Logger:     logger,
	})
	broadcaster := broadcast.NewBroadcaster(broadcast.Params{
		Hub:        broadcast.NewHub(cfg, logger),
		Repository: queuerepo.NewRepository(conns),
		Config:     cfg,
		Logger:     logger,
	})
	svc := ordersvc.NewService(ordersvc.Params{
		Repository:  orderrepo.NewRepository(conns),
		Menu:        menu,
		Broadcaster: broadcaster,
		Config:      cfg,
		Logger:      logger,
		Publisher:   messaging.NoopClient{},
	})

	e := echo.New()
	Register(e, NewHandler(svc))

	return &fixture{echo: e, conns: conns}
}

func (f *fixture) seedMenuItem(t *testing.T, name string) int64 {
	t.Helper()

	now := time.Now().UTC()
	item := &entity.MenuItem{Name: name, Price: 3.80, Available: true, CreatedAt: now, UpdatedAt: now}
	_, err := f.conns.Writer.NewInsert().Model(item).Exec(context.Background())
	require.NoError(t, err)
	return item.ID
}

func (f *fixture) request(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestCreateOrderEndpoint(t *testing.T) {
	f := newFixture(t)
	menuID := f.seedMenuItem(t, "Chicken Rice")

	body := fmt.Sprintf(`{"source":"counter","items":[{"menu_item_id":%d,"quantity":2}]}`, menuID)
	rec := f.request(http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	require.True(t, env.Success)

	var data struct {
		OrderID int64  `json:"order_id"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Greater(t, data.OrderID, int64(0))
	assert.Equal(t, "created", data.Status)

	token := new(entity.QueueToken)
	require.NoError(t, f.conns.Reader.NewSelect().Model(token).
		Where("order_id = ?", data.OrderID).Scan(context.Background()))
	assert.Equal(t, entity.TokenStatusWaiting, token.Status)
}

func TestCreateOrderRejectsUnknownMenuItem(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodPost, "/orders", `{"source":"counter","items":[{"menu_item_id":999,"quantity":1}]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "bad_request", env.Error.Kind)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodPost, "/orders", `{"source":"counter","items":[]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec).Error.Kind)
}

func TestSetStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	menuID := f.seedMenuItem(t, "Laksa")

	create := f.request(http.MethodPost, "/orders",
		fmt.Sprintf(`{"source":"kiosk","items":[{"menu_item_id":%d,"quantity":1}]}`, menuID))
	require.Equal(t, http.StatusCreated, create.Code)
	var created struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, create).Data, &created))

	rec := f.request(http.MethodPut, fmt.Sprintf("/orders/%d/status", created.OrderID), `{"status":"READY"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	require.True(t, env.Success)
	var data struct {
		OrderID   int64  `json:"order_id"`
		NewStatus string `json:"new_status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, created.OrderID, data.OrderID)
	assert.Equal(t, "ready", data.NewStatus)

	token := new(entity.QueueToken)
	require.NoError(t, f.conns.Reader.NewSelect().Model(token).
		Where("order_id = ?", created.OrderID).Scan(context.Background()))
	assert.Equal(t, entity.TokenStatusReady, token.Status)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	menuID := f.seedMenuItem(t, "Teh Tarik")

	create := f.request(http.MethodPost, "/orders",
		fmt.Sprintf(`{"source":"kiosk","items":[{"menu_item_id":%d,"quantity":1}]}`, menuID))
	var created struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, create).Data, &created))

	rec := f.request(http.MethodPut, fmt.Sprintf("/orders/%d/status", created.OrderID), `{"status":"burning"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "bad_request", env.Error.Kind)
	assert.Contains(t, env.Error.Message, "pending")
}

func TestSetStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodPut, "/orders/4242/status", `{"status":"ready"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Kind)
}

func TestListOrdersEndpoint(t *testing.T) {
	f := newFixture(t)
	menuID := f.seedMenuItem(t, "Kopi O")

	for i := 0; i < 2; i++ {
		rec := f.request(http.MethodPost, "/orders",
			fmt.Sprintf(`{"source":"counter","items":[{"menu_item_id":%d,"quantity":1}]}`, menuID))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.request(http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, entity.OrderStatusPending, orders[0].Status)
}

func TestOrderSyncRejectsBadTimestamp(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodGet, "/orders/sync?since=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec).Error.Kind)
}

func TestGetOrderDetailedEndpoint(t *testing.T) {
	f := newFixture(t)
	menuID := f.seedMenuItem(t, "Mee Goreng")

	create := f.request(http.MethodPost, "/orders",
		fmt.Sprintf(`{"source":"counter","items":[{"menu_item_id":%d,"quantity":2}]}`, menuID))
	var created struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, create).Data, &created))

	rec := f.request(http.MethodGet, fmt.Sprintf("/orders/%d/detailed", created.OrderID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detailed struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
		Items []struct {
			MenuName  string  `json:"menu_name"`
			MenuPrice float64 `json:"menu_price"`
			Quantity  int     `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detailed))
	assert.Equal(t, created.OrderID, detailed.Order.ID)
	require.Len(t, detailed.Items, 1)
	assert.Equal(t, "Mee Goreng", detailed.Items[0].MenuName)
	assert.Equal(t, 2, detailed.Items[0].Quantity)
}
