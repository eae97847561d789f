package menu

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

	"github.com/hashmato/pos/internal/cache"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/entity"
	repo "github.com/hashmato/pos/internal/repository/menu"
	"github.com/hashmato/pos/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/hashmato/pos/service/menu")

// Service encapsulates catalog logic. The order path consumes it through
// Available; everything else serves the menu endpoints.
type Service struct {
	repo     *repo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
	}
}

// Available reports whether the menu item exists and is currently orderable.
// A missing item is not an error; the order service turns it into a client
// error.
func (s *Service) Available(ctx context.Context, id int64) (bool, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Available", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item, err := s.get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return false, errorbank.Internal("failed to look up menu item", errorbank.WithCause(err))
	}
	return item.Available, nil
}

// ListAvailable returns the orderable catalog in id order.
func (s *Service) ListAvailable(ctx context.Context) ([]entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.ListAvailable")
	defer span.End()

	items, err := s.repo.ListAvailable(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load menu", errorbank.WithCause(err))
	}
	return items, nil
}

// ListSince returns catalog rows changed after since; the full catalog when
// since is nil.
func (s *Service) ListSince(ctx context.Context, since *time.Time) ([]entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.ListSince")
	defer span.End()

	items, err := s.repo.ListSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load menu", errorbank.WithCause(err))
	}
	return items, nil
}

// Create validates and persists a new catalog row. New items start available.
func (s *Service) Create(ctx context.Context, name string, price float64, imageURL string) (*entity.MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorbank.BadRequest("name is required and cannot be empty")
	}
	if price < 0 {
		return nil, errorbank.BadRequest("valid price is required")
	}

	ctx, span := serviceTracer.Start(ctx, "MenuService.Create", trace.WithAttributes(attribute.String("menu.name", name)))
	defer span.End()

	now := time.Now().UTC()
	item := &entity.MenuItem{
		Name:      name,
		Price:     price,
		Available: true,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create menu item", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, item); err != nil {
		s.logger.Warn("menu cache write failed", zap.Int64("id", item.ID), zap.Error(err))
	}

	return item, nil
}

func (s *Service) get(ctx context.Context, id int64) (*entity.MenuItem, error) {
	if item, err := s.getFromCache(ctx, id); err == nil {
		return item, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("menu cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.storeInCache(ctx, item); err != nil {
		s.logger.Warn("menu cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return item, nil
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("menu:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.MenuItem, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var item entity.MenuItem
	if err := json.Unmarshal(bytes, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) storeInCache(ctx context.Context, item *entity.MenuItem) error {
	if s.cache == nil || item == nil {
		return nil
	}
	bytes, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(item.ID), bytes, s.cacheTTL)
}
