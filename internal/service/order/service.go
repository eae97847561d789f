package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/broadcast"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	"github.com/hashmato/pos/internal/messaging"
	repo "github.com/hashmato/pos/internal/repository/order"
	menusvc "github.com/hashmato/pos/internal/service/menu"
	"github.com/hashmato/pos/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/hashmato/pos/service/order")

// Event types published to the order event stream.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// ItemInput is one requested order line.
type ItemInput struct {
	MenuItemID int64
	Quantity   int
}

// Service owns order intake and the status transition engine.
type Service struct {
	repo        *repo.Repository
	menu        *menusvc.Service
	broadcaster *broadcast.Broadcaster
	logger      *zap.Logger
	publisher   messaging.Client
	messaging   messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository  *repo.Repository
	Menu        *menusvc.Service
	Broadcaster *broadcast.Broadcaster
	Config      config.Config
	Logger      *zap.Logger
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:        p.Repository,
		menu:        p.Menu,
		broadcaster: p.Broadcaster,
		logger:      p.Logger,
		publisher:   p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Create validates the request, then persists the order, its line items, and
// the derived queue token atomically. Validation happens before any mutation:
// an empty item list, a non-positive quantity, or an unknown/unavailable menu
// item is a client error and nothing is written. On success a queue snapshot
// broadcast is scheduled without blocking the caller.
func (s *Service) Create(ctx context.Context, source string, items []ItemInput) (*entity.Order, error) {
	if len(items) == 0 {
		return nil, errorbank.BadRequest("order must contain at least one item")
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.source", source),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	lines := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, errorbank.BadRequest("item quantity must be greater than 0",
				errorbank.WithDetail("menu_item_id", item.MenuItemID))
		}
		available, err := s.menu.Available(ctx, item.MenuItemID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "menu lookup failed")
			return nil, err
		}
		if !available {
			return nil, errorbank.BadRequest("menu item does not exist or is unavailable",
				errorbank.WithDetail("menu_item_id", item.MenuItemID))
		}
		lines = append(lines, entity.OrderItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		})
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Source:    strings.TrimSpace(source),
		Status:    entity.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateWithItems(ctx, order, lines); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.broadcaster.Schedule()
	s.publishEvent(ctx, EventOrderCreated, order)

	return order, nil
}

// SetStatus validates and applies an order status change together with the
// derived queue-token mutation: "ready" marks the token ready, "completed"
// removes it, other statuses leave it untouched. The order update and the
// token effect commit as one unit. A queue broadcast is scheduled after the
// combined mutation succeeds, regardless of which branch fired.
func (s *Service) SetStatus(ctx context.Context, id int64, rawStatus string) (string, error) {
	status, ok := entity.NormalizeOrderStatus(rawStatus)
	if !ok {
		return "", errorbank.BadRequest(
			fmt.Sprintf("invalid status. Allowed: %s", strings.Join(entity.OrderStatuses, ", ")))
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.SetStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return "", errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	s.broadcaster.Schedule()
	s.publishEvent(ctx, EventOrderStatusChanged, &entity.Order{ID: id, Status: status, UpdatedAt: now})

	return status, nil
}

// Get retrieves an order by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListSince returns orders updated after since, most recently updated first.
func (s *Service) ListSince(ctx context.Context, since *time.Time) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListSince")
	defer span.End()

	orders, err := s.repo.ListSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// GetDetailed returns an order joined with its line items and each item's
// menu name, price, and image.
func (s *Service) GetDetailed(ctx context.Context, id int64) (*dto.OrderDetailedResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetDetailed", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListItemsDetailed(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order items", errorbank.WithCause(err))
	}

	detailed := &dto.OrderDetailedResponse{
		Order: toOrderDTO(order),
		Items: toItemDTOs(rows),
	}
	return detailed, nil
}

// ListDetailed returns every order with joined line items, newest first.
func (s *Service) ListDetailed(ctx context.Context) ([]dto.OrderDetailedResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListDetailed")
	defer span.End()

	orders, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]dto.OrderDetailedResponse, 0, len(orders))
	for _, order := range orders {
		rows, err := s.repo.ListItemsDetailed(ctx, order.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to load order items", errorbank.WithCause(err))
		}
		result = append(result, dto.OrderDetailedResponse{
			Order: toOrderDTO(&order),
			Items: toItemDTOs(rows),
		})
	}
	return result, nil
}

// publishEvent emits an order lifecycle event to the durable stream. This is
// best-effort: the mutation has already committed, so failures are only
// logged.
func (s *Service) publishEvent(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := Event{
		Type:       eventType,
		OrderID:    order.ID,
		Source:     order.Source,
		Status:     order.Status,
		OccurredAt: order.UpdatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order event", zap.String("type", eventType), zap.Error(err))
	}
}

func toOrderDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:        order.ID,
		Source:    order.Source,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func toItemDTOs(rows []repo.ItemDetailedRow) []dto.OrderItemDetailed {
	items := make([]dto.OrderItemDetailed, 0, len(rows))
	for _, row := range rows {
		item := dto.OrderItemDetailed{
			ID:         row.ID,
			OrderID:    row.OrderID,
			MenuItemID: row.MenuItemID,
			Quantity:   row.Quantity,
			MenuName:   row.MenuName,
			MenuPrice:  row.MenuPrice,
		}
		if row.MenuImage.Valid {
			item.MenuImage = row.MenuImage.String
		}
		items = append(items, item)
	}
	return items
}

// Event is emitted on the order stream for every create and status change.
type Event struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	Source     string    `json:"source,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
