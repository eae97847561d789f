package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/entity"
)

var repoTracer = otel.Tracer("github.com/hashmato/pos/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders, their line items, and
// the queue tokens derived from them.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// CreateWithItems persists the order, all of its line items, and the derived
// queue token inside a single transaction. Any failure rolls the whole order
// back; no partial order is ever visible to readers.
func (r *Repository) CreateWithItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateWithItems", trace.WithAttributes(attribute.Int("order.items", len(items))))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}

		// The token number mirrors the order id. A dedicated resettable
		// counter would keep customer-facing numbers small; changing that
		// needs product sign-off.
		token := &entity.QueueToken{
			OrderID:     order.ID,
			TokenNumber: order.ID,
			Status:      entity.TokenStatusWaiting,
			CreatedAt:   order.CreatedAt,
		}
		_, err := tx.NewInsert().Model(token).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create transaction failed")
	}
	return err
}

// UpdateStatus sets the order status, refreshes the updated timestamp, and
// applies the derived queue-token effect, all in one transaction so the order
// and its token can never diverge. Returns ErrNotFound when no such order
// exists.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string, now time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*entity.Order)(nil)).
			Set("status = ?", status).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}

		switch status {
		case entity.OrderStatusReady:
			_, err = tx.NewUpdate().
				Model((*entity.QueueToken)(nil)).
				Set("status = ?", entity.TokenStatusReady).
				Where("order_id = ?", id).
				Exec(ctx)
		case entity.OrderStatusCompleted:
			_, err = tx.NewDelete().
				Model((*entity.QueueToken)(nil)).
				Where("order_id = ?", id).
				Exec(ctx)
		}
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status transaction failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns all orders, newest first.
func (r *Repository) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).Order("created_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListSince returns orders updated after the given instant, most recently
// updated first. A nil since returns every order.
func (r *Repository) ListSince(ctx context.Context, since *time.Time) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListSince")
	defer span.End()

	var orders []entity.Order
	q := r.reader.NewSelect().Model(&orders).Order("updated_at DESC")
	if since != nil {
		q = q.Where("updated_at > ?", *since)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ItemDetailedRow is an order line joined with its menu row.
type ItemDetailedRow struct {
	ID         int64          `bun:"id"`
	OrderID    int64          `bun:"order_id"`
	MenuItemID int64          `bun:"menu_item_id"`
	Quantity   int            `bun:"quantity"`
	MenuName   string         `bun:"menu_name"`
	MenuPrice  float64        `bun:"menu_price"`
	MenuImage  sql.NullString `bun:"menu_image"`
}

// ListItemsDetailed returns an order's line items joined with menu name,
// price, and image.
func (r *Repository) ListItemsDetailed(ctx context.Context, orderID int64) ([]ItemDetailedRow, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListItemsDetailed", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var rows []ItemDetailedRow
	err := r.reader.NewSelect().
		TableExpr("order_items AS oi").
		ColumnExpr("oi.id, oi.order_id, oi.menu_item_id, oi.quantity").
		ColumnExpr("mi.name AS menu_name, mi.price AS menu_price, mi.image_url AS menu_image").
		Join("JOIN menu_items AS mi ON mi.id = oi.menu_item_id").
		Where("oi.order_id = ?", orderID).
		OrderExpr("oi.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join select failed")
		return nil, err
	}
	return rows, nil
}
