package queue

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/entity"
)

var repoTracer = otel.Tracer("github.com/hashmato/pos/repository/queue")

// ErrNotFound is returned when no token exists for an order.
var ErrNotFound = errors.New("queue token not found")

// Repository provides read access to queue tokens. Token writes happen inside
// the order repository's transactions; the queue side only ever reads.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// List returns every queue token in ascending id order. Insertion order is
// arrival order, which is the customer-facing queue ordering.
func (r *Repository) List(ctx context.Context) ([]entity.QueueToken, error) {
	ctx, span := repoTracer.Start(ctx, "QueueRepository.List")
	defer span.End()

	var tokens []entity.QueueToken
	err := r.reader.NewSelect().Model(&tokens).Order("id ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return tokens, nil
}

// GetByOrderID fetches the token derived from the given order.
func (r *Repository) GetByOrderID(ctx context.Context, orderID int64) (*entity.QueueToken, error) {
	ctx, span := repoTracer.Start(ctx, "QueueRepository.GetByOrderID", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	token := new(entity.QueueToken)
	err := r.reader.NewSelect().Model(token).Where("order_id = ?", orderID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return token, nil
}
