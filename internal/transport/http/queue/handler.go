package queue

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/hashmato/pos/internal/broadcast"
	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	"github.com/hashmato/pos/internal/presentation/http/response"
	queuerepo "github.com/hashmato/pos/internal/repository/queue"
	"github.com/hashmato/pos/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/hashmato/pos/transport/http/queue")

// Handler exposes the queue read, the manual broadcast trigger, and the live
// subscriber stream.
type Handler struct {
	repo        *queuerepo.Repository
	hub         *broadcast.Hub
	broadcaster *broadcast.Broadcaster
	logger      *zap.Logger
}

// NewHandler constructs a queue Handler.
func NewHandler(repo *queuerepo.Repository, hub *broadcast.Hub, broadcaster *broadcast.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, broadcaster: broadcaster, logger: logger}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/queue", h.list)
	e.POST("/queue/broadcast", h.broadcast)
	e.GET("/ws", echo.WrapHandler(websocket.Handler(h.serve)))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "queue.list")
	defer span.End()

	tokens, err := h.repo.List(ctx)
	if err != nil {
		return b.WithError(errorbank.Internal("failed to load queue", errorbank.WithCause(err))).Build()
	}

	return b.WithData(toDTOs(tokens)).Build()
}

// broadcast manually triggers a snapshot publish. Operational affordance; the
// response never reflects delivery, which is best-effort by design.
func (h *Handler) broadcast(c echo.Context) error {
	b := response.New(c)

	_, span := httpTracer.Start(c.Request().Context(), "queue.broadcast")
	defer span.End()

	h.broadcaster.Schedule()

	return b.WithData(map[string]string{"status": "queue broadcast sent"}).Build()
}

// serve runs one live subscriber connection. The connection receives every
// snapshot published after it subscribed, echoes inbound text frames with an
// "echo: " prefix, and ends on peer close or a failed send. Ping frames are
// answered with pongs by the websocket transport itself.
func (h *Handler) serve(conn *websocket.Conn) {
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	// Inbound frames are echoed through the single writer loop below so
	// snapshot and echo writes never interleave on the wire.
	echoes := make(chan string, 8)
	readerDone := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(readerDone)
		for {
			var text string
			if err := websocket.Message.Receive(conn, &text); err != nil {
				return
			}
			select {
			case echoes <- text:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := websocket.Message.Send(conn, string(payload)); err != nil {
				h.logger.Debug("queue viewer send failed", zap.Error(err))
				return
			}
		case text := <-echoes:
			if err := websocket.Message.Send(conn, "echo: "+text); err != nil {
				h.logger.Debug("queue viewer echo failed", zap.Error(err))
				return
			}
		case <-readerDone:
			return
		}
	}
}

func toDTOs(tokens []entity.QueueToken) []dto.QueueTokenResponse {
	out := make([]dto.QueueTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, dto.QueueTokenResponse{
			ID:          t.ID,
			OrderID:     t.OrderID,
			TokenNumber: t.TokenNumber,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}
