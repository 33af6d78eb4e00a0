// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler and Shutdown. Which fields are set depends on the role:
// the content store owns MongoDB, the storefront owns the content client
// and the render cache backend.
type DBDeps struct {
	// MongoDB client and database (cms role)
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Content API client (site role)
	Content *content.Client

	// Redis backs the render cache when cache_backend=redis; nil otherwise.
	Redis *redis.Client

	// RenderStore holds cached page renders (memory or Redis).
	RenderStore rendercache.Store

	// FileStorage resolves relative media paths
	FileStorage storage.Store

	// Tracer is nil when tracing is disabled.
	Tracer *sdktrace.TracerProvider
}
