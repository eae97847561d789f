package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Menu seeds a starter menu if the items are missing.
func (s *Seeder) Menu(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.MenuItem{
		{Name: "Chicken Rice", Price: 5.50, Available: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Laksa", Price: 6.00, Available: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Kopi O", Price: 1.40, Available: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Teh Tarik", Price: 1.60, Available: true, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		item := sample
		exists, err := s.db.NewSelect().Model((*entity.MenuItem)(nil)).
			Where("name = ?", item.Name).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&item).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded menu items", zap.Int("count", len(samples)))
	}
	return nil
}
