// Package catalog builds storefront view models from CMS content. It is
// the only storefront layer that knows about fallback data: when the CMS
// is unreachable it serves a built-in dataset, flags the model as
// Degraded, and marks the render uncacheable so the fallback never
// outlives the outage.
package catalog

import (
	"context"
	"errors"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.uber.org/zap"
)

// ErrNotFound is returned for slugs with no content and no fallback.
var ErrNotFound = content.ErrNotFound

// Source is the subset of the content client the catalog reads from.
type Source interface {
	Tours(ctx context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error)
	Tour(ctx context.Context, idOrSlug string, draft bool) (models.Tour, error)
	Categories(ctx context.Context, q cmsquery.Query) ([]models.Category, jsonutil.Pagination, error)
	Category(ctx context.Context, idOrSlug string) (models.Category, error)
	SiteSettings(ctx context.Context) (models.SiteSettings, error)
	Page(ctx context.Context, slug string) (models.Page, error)
}

// Service assembles view models.
type Service struct {
	src    Source
	logger *zap.Logger
}

func New(src Source, logger *zap.Logger) *Service {
	return &Service{src: src, logger: logger}
}

// degrade reports whether err means the CMS is unavailable. When it does,
// the current render is marked uncacheable and the outage is logged.
func (s *Service) degrade(ctx context.Context, view string, err error) bool {
	if !content.IsUnavailable(err) {
		return false
	}
	rendercache.MarkUncacheable(ctx)
	s.logger.Warn("content unavailable, serving fallback",
		zap.String("view", view),
		zap.Error(err))
	return true
}

// IsUnavailable reports whether err means the CMS could not be reached
// and no fallback covered the request.
func IsUnavailable(err error) bool {
	return content.IsUnavailable(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound)
}

func draft(ctx context.Context) bool {
	return draftmode.Enabled(ctx)
}

// Settings returns the site settings, or the defaults when the CMS has
// none or cannot be reached.
func (s *Service) Settings(ctx context.Context) models.SiteSettings {
	settings, err := s.src.SiteSettings(ctx)
	switch {
	case err == nil:
		if settings.SiteName == "" {
			settings.SiteName = models.DefaultSiteName
		}
		return settings
	case isNotFound(err):
		return models.DefaultSiteSettings()
	case s.degrade(ctx, "settings", err):
		return models.DefaultSiteSettings()
	}
	// a malformed settings response should not take every page down
	s.logger.Error("load site settings", zap.Error(err))
	rendercache.MarkUncacheable(ctx)
	return models.DefaultSiteSettings()
}
