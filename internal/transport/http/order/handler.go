package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	"github.com/hashmato/pos/internal/presentation/http/response"
	service "github.com/hashmato/pos/internal/service/order"
	"github.com/hashmato/pos/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/hashmato/pos/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/detailed", h.listDetailed)
	g.GET("/sync", h.sync)
	g.GET("/:id/detailed", h.getDetailed)
	g.PUT("/:id/status", h.setStatus)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Source string `json:"source"`
		Items  []struct {
			MenuItemID int64 `json:"menu_item_id"`
			Quantity   int   `json:"quantity"`
		} `json:"items"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	items := make([]service.ItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, service.ItemInput{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		})
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("order.source", payload.Source),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, payload.Source, items)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.OrderCreatedResponse{
		OrderID: order.ID,
		Status:  "created",
	}).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(orders)).Build()
}

func (h *Handler) listDetailed(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listDetailed")
	defer span.End()

	detailed, err := h.svc.ListDetailed(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(detailed).Build()
}

func (h *Handler) getDetailed(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getDetailed", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	detailed, err := h.svc.GetDetailed(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(detailed).Build()
}

func (h *Handler) setStatus(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.setStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
	))
	defer span.End()

	status, err := h.svc.SetStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.StatusChangedResponse{
		OrderID:   id,
		NewStatus: status,
	}).Build()
}

func (h *Handler) sync(c echo.Context) error {
	b := response.New(c)

	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid date format, use RFC3339", errorbank.WithCause(err))).Build()
		}
		utc := parsed.UTC()
		since = &utc
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.sync")
	defer span.End()

	orders, err := h.svc.ListSince(ctx, since)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(orders)).Build()
}

func toDTOs(orders []entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, dto.OrderResponse{
			ID:        order.ID,
			Source:    order.Source,
			Status:    order.Status,
			CreatedAt: order.CreatedAt,
			UpdatedAt: order.UpdatedAt,
		})
	}
	return out
}
