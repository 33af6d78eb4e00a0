// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	categorystore "github.com/dalemusser/stratatour/internal/app/store/categories"
	pagestore "github.com/dalemusser/stratatour/internal/app/store/pages"
	settingsstore "github.com/dalemusser/stratatour/internal/app/store/settings"
	tourstore "github.com/dalemusser/stratatour/internal/app/store/tours"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options selects optional seed sets.
type Options struct {
	// SampleTours publishes a small tour set when the tours collection is empty.
	SampleTours bool
}

// SeedAll seeds default data if not already present. Every step is
// idempotent and safe to run on each start.
func SeedAll(ctx context.Context, db *mongo.Database, opts Options, logger *zap.Logger) error {
	if err := seedSettings(ctx, db, logger); err != nil {
		return err
	}
	if err := seedCategories(ctx, db, logger); err != nil {
		return err
	}
	if err := seedPages(ctx, db, logger); err != nil {
		return err
	}
	if opts.SampleTours {
		return seedTours(ctx, db, logger)
	}
	return nil
}

func seedSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := settingsstore.New(db)
	exists, err := store.Exists(ctx)
	if err != nil || exists {
		return err
	}
	if _, err := store.Save(ctx, models.DefaultSiteSettings()); err != nil {
		logger.Error("failed to seed site settings", zap.Error(err))
		return err
	}
	logger.Info("seeded default site settings")
	return nil
}

func seedCategories(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := categorystore.New(db)
	for _, c := range models.DefaultCategories() {
		exists, err := store.Exists(ctx, c.Slug)
		if err != nil {
			logger.Error("failed to check if category exists",
				zap.String("slug", c.Slug),
				zap.Error(err))
			return err
		}
		if exists {
			continue
		}
		if _, err := store.Create(ctx, c); err != nil {
			logger.Error("failed to seed category",
				zap.String("slug", c.Slug),
				zap.Error(err))
			return err
		}
		logger.Info("seeded default category", zap.String("slug", c.Slug))
	}
	return nil
}

func seedPages(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := pagestore.New(db)
	for _, page := range models.DefaultPages() {
		exists, err := store.Exists(ctx, page.Slug)
		if err != nil {
			logger.Error("failed to check if page exists",
				zap.String("slug", page.Slug),
				zap.Error(err))
			return err
		}
		if exists {
			continue
		}
		if _, err := store.Upsert(ctx, page); err != nil {
			logger.Error("failed to seed page",
				zap.String("slug", page.Slug),
				zap.Error(err))
			return err
		}
		logger.Info("seeded default page", zap.String("slug", page.Slug))
	}
	return nil
}

func seedTours(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := tourstore.New(db)
	n, err := store.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, t := range models.SampleTours() {
		if _, err := store.Create(ctx, t, true); err != nil {
			logger.Error("failed to seed sample tour",
				zap.String("slug", t.Slug),
				zap.Error(err))
			return err
		}
	}
	logger.Info("seeded sample tours", zap.Int("count", len(models.SampleTours())))
	return nil
}
