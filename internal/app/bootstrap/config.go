// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATATOUR"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, cms_url, etc.
//   - Environment variables: STRATATOUR_MONGO_URI, STRATATOUR_CMS_URL, etc.
//   - Command-line flags: --mongo_uri, --cms_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "role", Default: RoleAll, Desc: "Process role: 'cms', 'site', or 'all'"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratatour", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratatour-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "api_key", Default: "", Desc: "API key for content API writes (leave empty to refuse writes)"},

	// Content API client
	{Name: "cms_url", Default: "http://localhost:8080", Desc: "Base URL of the content API"},
	{Name: "cms_api_token", Default: "", Desc: "Bearer token for content API calls"},
	{Name: "cms_timeout", Default: "0s", Desc: "Content API call deadline (0 picks 5s in dev, 10s in prod)"},

	// Lifecycle webhooks and gateways
	{Name: "site_url", Default: "http://localhost:8080", Desc: "Storefront base URL for lifecycle webhooks"},
	{Name: "revalidate_secret", Default: "", Desc: "Shared secret for /api/revalidate and /api/cron"},
	{Name: "preview_secret", Default: "", Desc: "Shared secret for /api/preview"},

	// Render cache
	{Name: "cache_backend", Default: CacheMemory, Desc: "Render cache store: 'memory' or 'redis'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address for the render cache"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "cache_sweep_interval", Default: "10m", Desc: "How often stale in-memory renders are evicted"},
	{Name: "tour_detail_fresh", Default: false, Desc: "Render tour detail pages per request (active promotions)"},

	// Engagement
	{Name: "engagement_rate", Default: "2", Desc: "Engagement requests per second per client IP"},
	{Name: "engagement_burst", Default: 10, Desc: "Engagement request burst per client IP"},
	{Name: "boost_cooldown", Default: "30m", Desc: "Per-viewer wait between counter boosts"},
	{Name: "boost_skip_probability", Default: "0.5", Desc: "Chance a boost roll does nothing"},

	{Name: "keepalive_interval", Default: "0s", Desc: "In-process CMS keepalive interval (0 disables)"},

	// Tracing
	{Name: "tracing_endpoint", Default: "", Desc: "Jaeger collector endpoint (empty disables export)"},
	{Name: "tracing_service", Default: "stratatour", Desc: "Service name reported on spans"},

	{Name: "seed_sample_data", Default: false, Desc: "Publish sample tours when the catalog is empty"},

	// Media storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for media files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},
}

// fallbackEnv maps app keys to the unprefixed variables deployments of
// the original site already set. They apply only when the key is unset.
var fallbackEnv = map[string]string{
	"revalidate_secret": "REVALIDATE_SECRET",
	"preview_secret":    "PREVIEW_SECRET",
	"cms_url":           "CMS_URL",
	"cms_api_token":     "CMS_API_TOKEN",
	"site_url":          "SITE_URL",
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, STRATATOUR_* for app) and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	str := func(key string) string {
		v := appValues.String(key)
		if env, ok := fallbackEnv[key]; ok && os.Getenv(EnvVarPrefix+"_"+strings.ToUpper(key)) == "" {
			if fb := os.Getenv(env); fb != "" {
				return fb
			}
		}
		return v
	}

	appCfg := AppConfig{
		Role: strings.ToLower(strings.TrimSpace(appValues.String("role"))),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		APIKey: appValues.String("api_key"),

		CMSURL:      str("cms_url"),
		CMSAPIToken: str("cms_api_token"),
		CMSTimeout:  appValues.Duration("cms_timeout", 0),

		SiteURL:          str("site_url"),
		RevalidateSecret: str("revalidate_secret"),
		PreviewSecret:    str("preview_secret"),

		CacheBackend:  strings.ToLower(appValues.String("cache_backend")),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		CacheSweep:    appValues.Duration("cache_sweep_interval", 10*time.Minute),

		TourDetailFresh: appValues.Bool("tour_detail_fresh"),

		EngagementRate:       parseFloat(appValues.String("engagement_rate"), 2),
		EngagementBurst:      appValues.Int("engagement_burst"),
		BoostCooldown:        appValues.Duration("boost_cooldown", 30*time.Minute),
		BoostSkipProbability: parseFloat(appValues.String("boost_skip_probability"), 0.5),

		KeepaliveInterval: appValues.Duration("keepalive_interval", 0),

		TracingEndpoint: appValues.String("tracing_endpoint"),
		TracingService:  appValues.String("tracing_service"),

		SeedSampleData: appValues.Bool("seed_sample_data"),

		// Media storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),
	}

	return coreCfg, appCfg, nil
}

// parseFloat reads a float setting, falling back to def when it is blank
// or malformed.
func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// ValidateConfig performs app-specific config validation.
//
// Missing gateway secrets are only warned about: the gateways refuse
// every request until they are set.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.Role {
	case RoleCMS, RoleSite, RoleAll:
	default:
		return fmt.Errorf("invalid role %q (want cms, site, or all)", appCfg.Role)
	}

	if appCfg.RunsCMS() {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.APIKey == "" {
			logger.Warn("api_key not set - content API writes are disabled")
		}
	}

	if appCfg.RunsSite() {
		u, err := url.Parse(appCfg.CMSURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid cms_url %q", appCfg.CMSURL)
		}
		switch appCfg.CacheBackend {
		case CacheMemory:
		case CacheRedis:
			if appCfg.RedisAddr == "" {
				return fmt.Errorf("cache_backend=redis requires redis_addr")
			}
		default:
			return fmt.Errorf("invalid cache_backend %q (want memory or redis)", appCfg.CacheBackend)
		}
		if appCfg.RevalidateSecret == "" {
			logger.Warn("revalidate_secret not set - /api/revalidate and /api/cron will refuse requests")
		}
		if appCfg.PreviewSecret == "" {
			logger.Warn("preview_secret not set - /api/preview will refuse requests")
		}
	}

	if appCfg.BoostSkipProbability < 0 || appCfg.BoostSkipProbability > 1 {
		return fmt.Errorf("boost_skip_probability must be within [0, 1], got %v", appCfg.BoostSkipProbability)
	}
	return nil
}
