package queue

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
	"golang.org/x/net/websocket"

	"github.com/hashmato/pos/internal/broadcast"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	queuerepo "github.com/hashmato/pos/internal/repository/queue"
)

type fixture struct {
	server *httptest.Server
	conns  *database.Connections
	hub    *broadcast.Hub
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
	for _, model := range []any{(*entity.Order)(nil), (*entity.QueueToken)(nil)} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	conns := &database.Connections{Writer: db, Reader: db}
	cfg := config.Config{
		Broadcast: config.Broadcast{BufferSize: 8, PublishTimeout: time.Second},
	}
	logger := zap.NewNop()

	repo := queuerepo.NewRepository(conns)
	hub := broadcast.NewHub(cfg, logger)
	broadcaster := broadcast.NewBroadcaster(broadcast.Params{
		Hub:        hub,
		Repository: repo,
		Config:     cfg,
		Logger:     logger,
	})

	e := echo.New()
	Register(e, NewHandler(repo, hub, broadcaster, logger))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &fixture{server: server, conns: conns, hub: hub}
}

func (f *fixture) seedToken(t *testing.T, status string) *entity.QueueToken {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	order := &entity.Order{Source: "counter", Status: entity.OrderStatusPending, CreatedAt: now, UpdatedAt: now}
	_, err := f.conns.Writer.NewInsert().Model(order).Exec(ctx)
	require.NoError(t, err)

	token := &entity.QueueToken{OrderID: order.ID, TokenNumber: order.ID, Status: status, CreatedAt: now}
	_, err = f.conns.Writer.NewInsert().Model(token).Exec(ctx)
	require.NoError(t, err)
	return token
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, err := websocket.Dial(wsURL, "", f.server.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receiveText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var text string
	require.NoError(t, websocket.Message.Receive(conn, &text))
	return text
}

func TestQueueListEndpoint(t *testing.T) {
	f := newFixture(t)
	first := f.seedToken(t, entity.TokenStatusWaiting)
	second := f.seedToken(t, entity.TokenStatusReady)

	resp, err := http.Get(f.server.URL + "/queue")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Success bool                     `json:"success"`
		Data    []dto.QueueTokenResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)
	require.Len(t, env.Data, 2)
	assert.Equal(t, first.OrderID, env.Data[0].OrderID)
	assert.Equal(t, entity.TokenStatusWaiting, env.Data[0].Status)
	assert.Equal(t, second.OrderID, env.Data[1].OrderID)
	assert.Equal(t, entity.TokenStatusReady, env.Data[1].Status)
}

func TestWebsocketEcho(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	require.NoError(t, websocket.Message.Send(conn, "hello"))
	assert.Equal(t, "echo: hello", receiveText(t, conn))
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	f := newFixture(t)
	token := f.seedToken(t, entity.TokenStatusWaiting)

	conn := f.dial(t)
	// Wait for the connection to land in the registry before triggering.
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(f.server.URL+"/queue/broadcast", echo.MIMEApplicationJSON, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot []dto.QueueTokenResponse
	require.NoError(t, json.Unmarshal([]byte(receiveText(t, conn)), &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, token.OrderID, snapshot[0].OrderID)
	assert.Equal(t, token.TokenNumber, snapshot[0].TokenNumber)
	assert.Equal(t, entity.TokenStatusWaiting, snapshot[0].Status)
}

func TestBroadcastFansOutToEverySubscriber(t *testing.T) {
	f := newFixture(t)
	f.seedToken(t, entity.TokenStatusWaiting)

	first := f.dial(t)
	second := f.dial(t)
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 2 },
		2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(f.server.URL+"/queue/broadcast", echo.MIMEApplicationJSON, nil)
	require.NoError(t, err)
	resp.Body.Close()

	for _, conn := range []*websocket.Conn{first, second} {
		var snapshot []dto.QueueTokenResponse
		require.NoError(t, json.Unmarshal([]byte(receiveText(t, conn)), &snapshot))
		assert.Len(t, snapshot, 1)
	}
}

func TestDisconnectDeregistersSubscriber(t *testing.T) {
	f := newFixture(t)

	conn := f.dial(t)
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 0 },
		2*time.Second, 10*time.Millisecond)
}
