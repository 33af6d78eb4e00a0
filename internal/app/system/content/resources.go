// internal/app/system/content/resources.go
package content

import (
	"context"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

// Tours lists tours matching q.
func (c *Client) Tours(ctx context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error) {
	tours := []models.Tour{}
	p, err := c.FetchCollection(ctx, ResourceTours, q, &tours)
	return tours, p, err
}

// Tour loads one tour by slug or document id.
func (c *Client) Tour(ctx context.Context, idOrSlug string, draft bool) (models.Tour, error) {
	var t models.Tour
	err := c.FetchOne(ctx, ResourceTours, idOrSlug, draft, &t)
	return t, err
}

// Categories lists categories matching q.
func (c *Client) Categories(ctx context.Context, q cmsquery.Query) ([]models.Category, jsonutil.Pagination, error) {
	cats := []models.Category{}
	p, err := c.FetchCollection(ctx, ResourceCategories, q, &cats)
	return cats, p, err
}

// Category loads one category by slug or document id.
func (c *Client) Category(ctx context.Context, idOrSlug string) (models.Category, error) {
	var cat models.Category
	err := c.FetchOne(ctx, ResourceCategories, idOrSlug, false, &cat)
	return cat, err
}

// SiteSettings loads the settings singleton.
func (c *Client) SiteSettings(ctx context.Context) (models.SiteSettings, error) {
	var s models.SiteSettings
	err := c.FetchSingle(ctx, ResourceSettings, &s)
	return s, err
}

// Page loads an informational page by slug.
func (c *Client) Page(ctx context.Context, slug string) (models.Page, error) {
	var p models.Page
	err := c.FetchOne(ctx, ResourcePages, slug, false, &p)
	return p, err
}

// UpdateTourCounts overwrites the engagement counters of a published tour.
func (c *Client) UpdateTourCounts(ctx context.Context, documentID string, counts models.Counts) error {
	return c.Update(ctx, ResourceTours, documentID, map[string]int{
		"reviewCount":  counts.ReviewCount,
		"bookingCount": counts.BookingCount,
	})
}
