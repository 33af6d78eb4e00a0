// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/indexes"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/seeding"
	"github.com/dalemusser/stratatour/internal/app/system/timeouts"
	"github.com/dalemusser/stratatour/internal/app/system/tracing"
	"github.com/dalemusser/stratatour/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectDB connects to the backends this role needs.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema
// and Startup. The content store connects to MongoDB; the storefront builds
// the content client and, with cache_backend=redis, connects to Redis.
// Tracing is set up first so the content client picks up the provider.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps
	var err error

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	deps.Tracer, err = tracing.Init(appCfg.TracingService, appCfg.TracingEndpoint, logger)
	if err != nil {
		return DBDeps{}, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if appCfg.RunsCMS() {
		poolCfg := wafflemongo.DefaultPoolConfig()
		if appCfg.MongoMaxPoolSize > 0 {
			poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
		}
		if appCfg.MongoMinPoolSize > 0 {
			poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
		}

		client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
		if err != nil {
			return DBDeps{}, err
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)

		logger.Info("connected to MongoDB",
			zap.String("database", appCfg.MongoDatabase),
			zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
			zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
		)
	}

	if appCfg.RunsSite() {
		timeout := timeouts.ContentClient(coreCfg.Env, appCfg.CMSTimeout)
		deps.Content, err = content.New(content.Config{
			BaseURL: appCfg.CMSURL,
			Token:   appCfg.CMSAPIToken,
			Timeout: timeout,
			Logger:  logger,
		})
		if err != nil {
			return DBDeps{}, err
		}
		logger.Info("content client ready",
			zap.String("cms_url", appCfg.CMSURL),
			zap.Duration("timeout", timeout),
			zap.Bool("token", appCfg.CMSAPIToken != ""))

		if appCfg.CacheBackend == CacheRedis {
			rdb := redis.NewClient(&redis.Options{
				Addr:     appCfg.RedisAddr,
				Password: appCfg.RedisPassword,
				DB:       appCfg.RedisDB,
			})
			pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
			err := rdb.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				_ = rdb.Close()
				return DBDeps{}, fmt.Errorf("failed to connect to redis at %s: %w", appCfg.RedisAddr, err)
			}
			deps.Redis = rdb
			deps.RenderStore = rendercache.NewRedisStore(rdb, "")
			logger.Info("connected to Redis",
				zap.String("addr", appCfg.RedisAddr),
				zap.Int("db", appCfg.RedisDB))
		} else {
			deps.RenderStore = rendercache.NewMemoryStore()
			logger.Info("render cache in memory (single instance only)")
		}

		deps.FileStorage, err = openStorage(ctx, appCfg, logger)
		if err != nil {
			return DBDeps{}, err
		}
	}

	return deps, nil
}

// openStorage builds the media store used to resolve relative media URLs.
func openStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appCfg.StorageType {
	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Info("initialized S3/CloudFront media storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)
		return store, nil
	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local media storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
}

// EnsureSchema creates collections, validators and indexes for the content
// store and seeds the default content. The storefront has no schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	db := deps.MongoDatabase

	// Collections and validators first so indexes land on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("seeding default content", zap.Bool("sample_tours", appCfg.SeedSampleData))
	if err := seeding.SeedAll(ctx, db, seeding.Options{SampleTours: appCfg.SeedSampleData}, logger); err != nil {
		logger.Error("failed to seed default content", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
