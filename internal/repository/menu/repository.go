package menu

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

var repoTracer = otel.Tracer("github.com/hashmato/pos/repository/menu")

// ErrNotFound is returned when a menu item is missing.
var ErrNotFound = errors.New("menu item not found")

// Repository encapsulates read/write access for menu items.
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

// Create persists a new menu item.
func (r *Repository) Create(ctx context.Context, item *entity.MenuItem) error {
	if item == nil {
		return errors.New("nil menu item")
	}
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Create", trace.WithAttributes(attribute.String("menu.name", item.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a menu item by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.GetByID", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item := new(entity.MenuItem)
	err := r.reader.NewSelect().Model(item).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return item, nil
}

// ListAvailable returns available menu items in id order.
func (r *Repository) ListAvailable(ctx context.Context) ([]entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.ListAvailable")
	defer span.End()

	var items []entity.MenuItem
	err := r.reader.NewSelect().Model(&items).Where("available = ?", true).Order("id ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// ListSince returns menu items updated after the given instant, id ascending.
// A nil since returns the whole catalog.
func (r *Repository) ListSince(ctx context.Context, since *time.Time) ([]entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.ListSince")
	defer span.End()

	var items []entity.MenuItem
	q := r.reader.NewSelect().Model(&items).Order("id ASC")
	if since != nil {
		q = q.Where("updated_at > ?", *since)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}
