// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Process roles.
const (
	RoleCMS  = "cms"
	RoleSite = "site"
	RoleAll  = "all"
)

// Render cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging, CORS and timeouts; everything specific to the
// content store and the storefront lives here.
type AppConfig struct {
	// Role selects which half of the system this process runs:
	// "cms" (content store), "site" (storefront) or "all".
	Role string

	// MongoDB connection configuration (content store only)
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session cookie carrying the draft flag and the boost cooldown
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratatour-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// APIKey guards content API writes. Empty means writes are refused.
	APIKey string

	// Content API as seen from the storefront
	CMSURL      string        // Base URL of the content API (e.g., http://localhost:8080)
	CMSAPIToken string        // Bearer token sent on every content call
	CMSTimeout  time.Duration // Per-call deadline; zero picks the env default

	// SiteURL is where the content store sends lifecycle webhooks.
	SiteURL string

	// Gateway secrets. Empty disables the gateway (fail closed).
	RevalidateSecret string
	PreviewSecret    string

	// Render cache
	CacheBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheSweep    time.Duration // how often stale memory entries are evicted

	// TourDetailFresh renders tour pages per request (promotions running).
	TourDetailFresh bool

	// Engagement counters
	EngagementRate       float64       // requests per second per client IP
	EngagementBurst      int           // burst per client IP
	BoostCooldown        time.Duration // per-viewer wait between boosts
	BoostSkipProbability float64       // chance a boost roll does nothing

	// Keepalive pings the CMS in-process; zero disables it.
	KeepaliveInterval time.Duration

	// Tracing (Jaeger collector endpoint; empty disables export)
	TracingEndpoint string
	TracingService  string

	// SeedSampleData publishes sample tours into an empty catalog.
	SeedSampleData bool

	// Media storage used to resolve relative media paths
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string // AWS region
	StorageS3Bucket    string // S3 bucket name
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file
}

// RunsCMS reports whether this process serves the content store.
func (c AppConfig) RunsCMS() bool { return c.Role == RoleCMS || c.Role == RoleAll }

// RunsSite reports whether this process serves the storefront.
func (c AppConfig) RunsSite() bool { return c.Role == RoleSite || c.Role == RoleAll }
