// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	categoriesfeature "github.com/dalemusser/stratatour/internal/app/features/categories"
	contentapifeature "github.com/dalemusser/stratatour/internal/app/features/contentapi"
	cronfeature "github.com/dalemusser/stratatour/internal/app/features/cron"
	engagementfeature "github.com/dalemusser/stratatour/internal/app/features/engagement"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratatour/internal/app/features/health"
	homefeature "github.com/dalemusser/stratatour/internal/app/features/home"
	pagesfeature "github.com/dalemusser/stratatour/internal/app/features/pages"
	previewfeature "github.com/dalemusser/stratatour/internal/app/features/preview"
	revalidatefeature "github.com/dalemusser/stratatour/internal/app/features/revalidate"
	searchfeature "github.com/dalemusser/stratatour/internal/app/features/search"
	toursfeature "github.com/dalemusser/stratatour/internal/app/features/tours"
	appresources "github.com/dalemusser/stratatour/internal/app/resources"
	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/app/system/engagement"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/ratelimit"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// markerMaxAge is how long a viewer's counted-tour marker is kept.
const markerMaxAge = 30 * 24 * time.Hour

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, backend connections, schema setup,
// and Startup have completed. What gets mounted depends on the role:
//   - cms:  the content API under /api and its lifecycle notifier
//   - site: the storefront pages behind the render pipeline, the
//     revalidation and preview gateways, engagement and cron endpoints
//   - all:  both, with lifecycle events delivered in-process
//
// Health probes, /metrics and the embedded assets are mounted in every role.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)

	// The draft session is read by a global middleware, so it must exist
	// before any route is registered.
	var draftMgr *draftmode.Manager
	if appCfg.RunsSite() {
		var err error
		draftMgr, err = draftmode.NewManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
		if err != nil {
			logger.Error("session manager init failed", zap.Error(err))
			return nil, err
		}
		viewdata.Init(deps.FileStorage)
	}

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// HEAD requests reuse the GET handlers (and their cached renders).
	r.Use(chimw.GetHead)

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Draft mode: copies the session's draft flag into the request context.
	if draftMgr != nil {
		r.Use(draftMgr.Middleware)
	}

	// ─────────────────────────────────────────────────────────────────────────────
	// Operational endpoints (every role)
	// ─────────────────────────────────────────────────────────────────────────────

	var checks []healthfeature.Check
	if deps.MongoClient != nil {
		checks = append(checks, healthfeature.Mongo(deps.MongoClient))
	}
	if deps.Redis != nil {
		checks = append(checks, healthfeature.Redis(deps.Redis))
	}
	if deps.Content != nil {
		checks = append(checks, healthfeature.CMS(deps.Content.Ping))
	}
	healthHandler := healthfeature.NewHandler(logger, checks...)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Handle("/metrics", metrics.Handler())

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Default error pages; the storefront swaps in one that reads site settings.
	errs := errorsfeature.NewHandler(nil)

	// ─────────────────────────────────────────────────────────────────────────────
	// Storefront
	// ─────────────────────────────────────────────────────────────────────────────

	var notifier lifecycle.Notifier
	var cronHandler *cronfeature.Handler

	if appCfg.RunsSite() {
		pipeline := rendercache.New(deps.RenderStore, logger, draftMgr.IsDraft)
		cat := catalog.New(deps.Content, logger)
		errs = errorsfeature.NewHandler(cat.Settings)

		// Media files (local storage only)
		if appCfg.StorageType == "local" || appCfg.StorageType == "" {
			r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
		}

		// Gateways
		revalidateHandler := revalidatefeature.NewHandler(deps.RenderStore, appCfg.RevalidateSecret, logger)
		revalidateHandler.MountRoutes(r)
		notifier = revalidateHandler.Notifier()

		previewHandler := previewfeature.NewHandler(draftMgr, appCfg.PreviewSecret, logger)
		previewHandler.MountRoutes(r)

		// Engagement counters, rate limited per client IP
		engagementHandler := engagementfeature.NewHandler(
			deps.Content,
			engagement.NewMarker(appCfg.SessionKey, markerMaxAge, secure),
			engagement.NewBooster(deps.Content, appCfg.BoostCooldown, appCfg.BoostSkipProbability),
			draftMgr,
			errLog,
			logger,
		)
		limiter := ratelimit.New(appCfg.EngagementRate, appCfg.EngagementBurst)
		r.Mount("/api/engagement", engagementfeature.Routes(engagementHandler, limiter))

		// Externally scheduled keepalive and cache warming
		cronHandler = cronfeature.NewHandler(deps.Content, appCfg.RevalidateSecret, logger)
		cronHandler.MountRoutes(r)

		// Pages
		toursHandler := toursfeature.NewHandler(cat, errs, errLog, appCfg.TourDetailFresh, logger)
		toursHandler.MountRoutes(r, pipeline)

		categoriesHandler := categoriesfeature.NewHandler(cat, errs, errLog, logger)
		categoriesHandler.MountRoutes(r, pipeline)

		searchHandler := searchfeature.NewHandler(cat, errs, errLog, logger)
		r.Mount("/search", searchfeature.Routes(searchHandler, pipeline))

		// Content pages (about, contact, terms, privacy)
		pagesHandler := pagesfeature.NewHandler(cat, errs, errLog, pipeline, logger)
		r.Mount("/about", pagesHandler.AboutRouter())
		r.Mount("/contact", pagesHandler.ContactRouter())
		r.Mount("/terms", pagesHandler.TermsRouter())
		r.Mount("/privacy", pagesHandler.PrivacyRouter())

		homeHandler := homefeature.NewHandler(cat, errs, errLog, logger)
		r.Mount("/", homefeature.Routes(homeHandler, pipeline))

		logger.Info("storefront mounted",
			zap.String("cache_backend", appCfg.CacheBackend),
			zap.Bool("tour_detail_fresh", appCfg.TourDetailFresh))
	}

	// ─────────────────────────────────────────────────────────────────────────────
	// Content store
	// ─────────────────────────────────────────────────────────────────────────────

	if appCfg.RunsCMS() {
		// In the all-in-one role the revalidation handler is in this process;
		// otherwise webhooks go to the storefront over HTTP.
		if notifier == nil {
			httpNotifier := lifecycle.NewHTTPNotifier(appCfg.SiteURL, appCfg.RevalidateSecret)
			if !httpNotifier.Configured() {
				logger.Warn("lifecycle webhooks disabled: site_url or revalidate_secret missing")
			}
			notifier = httpNotifier
		}

		contentHandler := contentapifeature.NewHandler(deps.MongoDatabase, notifier, errLog, logger)
		r.Mount("/api", contentapifeature.Routes(contentHandler, appCfg.APIKey, logger))
		logger.Info("content API mounted", zap.Bool("writes_enabled", appCfg.APIKey != ""))
	}

	// Error pages for unmatched routes and methods
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	if cronHandler != nil {
		cronHandler.SetRouter(r)
	}

	return r, nil
}
