package catalog

import (
	"context"
	"strings"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Listing sizes.
const (
	FeaturedLimit  = 6
	LatestLimit    = 8
	ToursPageSize  = 12
	RelatedLimit   = 4
	SearchPageSize = 24
	MaxSearchQuery = 100
)

// tourCardFields is the projection used for every tour card.
var tourCardFields = []string{
	"documentId", "slug", "title", "shortDescription", "price", "originalPrice",
	"destination", "duration", "departure", "category", "thumbnail",
	"rating", "reviewCount", "bookingCount", "featured",
}

func (s *Service) tourQuery(ctx context.Context) cmsquery.Query {
	q := cmsquery.Query{Draft: draft(ctx)}
	return q.Select(tourCardFields...)
}

// HomeVM feeds the landing page.
type HomeVM struct {
	Banners    []models.BannerSlide
	Featured   []models.Tour
	Latest     []models.Tour
	Categories []models.Category
	Degraded   bool
}

// Home loads featured tours, the newest tours, and the category strip
// concurrently. Each part falls back independently.
func (s *Service) Home(ctx context.Context, settings models.SiteSettings) (HomeVM, error) {
	vm := HomeVM{Banners: settings.Banners}
	var featuredDegraded, latestDegraded, catsDegraded bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := s.tourQuery(ctx).Where(cmsquery.Eq("featured", "true")).Paginate(1, FeaturedLimit).SortBy("-bookingCount")
		tours, _, err := s.src.Tours(gctx, q)
		if err != nil {
			if !s.degrade(ctx, "home.featured", err) {
				return err
			}
			tours, featuredDegraded = FallbackTours(), true
		}
		vm.Featured = tours
		return nil
	})
	g.Go(func() error {
		q := s.tourQuery(ctx).Paginate(1, LatestLimit).SortBy("-publishedAt")
		tours, _, err := s.src.Tours(gctx, q)
		if err != nil {
			if !s.degrade(ctx, "home.latest", err) {
				return err
			}
			tours, latestDegraded = []models.Tour{}, true
		}
		vm.Latest = tours
		return nil
	})
	g.Go(func() error {
		cats, err := s.categories(gctx)
		if err != nil {
			if !s.degrade(ctx, "home.categories", err) {
				return err
			}
			cats, catsDegraded = FallbackCategories(), true
		}
		vm.Categories = cats
		return nil
	})
	if err := g.Wait(); err != nil {
		return HomeVM{}, err
	}
	vm.Degraded = featuredDegraded || latestDegraded || catsDegraded
	return vm, nil
}

func (s *Service) categories(ctx context.Context) ([]models.Category, error) {
	cats, _, err := s.src.Categories(ctx, cmsquery.Query{}.Paginate(1, cmsquery.MaxPageSize).SortBy("order", "name"))
	return cats, err
}

// TourFilter narrows the tour listing.
type TourFilter struct {
	Category    string
	Destination string
	Sort        string
	Page        int
}

// Sort options for the listing.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortPopular   = "popular"
)

func (f TourFilter) sortField() string {
	switch f.Sort {
	case SortPriceAsc:
		return "price"
	case SortPriceDesc:
		return "-price"
	case SortPopular:
		return "-bookingCount"
	}
	return "-publishedAt"
}

// ToursVM feeds the tour listing.
type ToursVM struct {
	Filter     TourFilter
	Tours      []models.Tour
	Pagination jsonutil.Pagination
	Categories []models.Category
	Degraded   bool
}

// Tours lists published tours with optional category and destination filters.
func (s *Service) Tours(ctx context.Context, f TourFilter) (ToursVM, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	vm := ToursVM{Filter: f}

	q := s.tourQuery(ctx).Paginate(f.Page, ToursPageSize).SortBy(f.sortField())
	if f.Category != "" {
		q = q.Where(cmsquery.Eq("category.slug", f.Category))
	}
	if f.Destination != "" {
		q = q.Where(cmsquery.ContainsFold("destination", f.Destination))
	}

	tours, p, err := s.src.Tours(ctx, q)
	if err != nil {
		if !s.degrade(ctx, "tours", err) {
			return ToursVM{}, err
		}
		tours = filterFallback(FallbackTours(), f)
		p = jsonutil.Pagination{Page: 1, PageSize: ToursPageSize, PageCount: 1, Total: int64(len(tours))}
		vm.Degraded = true
	}
	vm.Tours, vm.Pagination = tours, p

	cats, err := s.categories(ctx)
	if err != nil {
		if !s.degrade(ctx, "tours.categories", err) {
			return ToursVM{}, err
		}
		cats, vm.Degraded = FallbackCategories(), true
	}
	vm.Categories = cats
	return vm, nil
}

func filterFallback(tours []models.Tour, f TourFilter) []models.Tour {
	out := []models.Tour{}
	for _, t := range tours {
		if f.Category != "" && (t.Category == nil || t.Category.Slug != f.Category) {
			continue
		}
		if f.Destination != "" && !strings.Contains(strings.ToLower(t.Destination), strings.ToLower(f.Destination)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TourVM feeds the tour detail page.
type TourVM struct {
	Tour     models.Tour
	Related  []models.Tour
	Degraded bool
}

// Tour loads a tour by slug. Unknown slugs return ErrNotFound. During an
// outage a fallback tour with the same slug is served when one exists.
func (s *Service) Tour(ctx context.Context, slug string) (TourVM, error) {
	t, err := s.src.Tour(ctx, slug, draft(ctx))
	if err != nil {
		if !s.degrade(ctx, "tour", err) {
			return TourVM{}, err
		}
		for _, ft := range FallbackTours() {
			if ft.Slug == slug {
				return TourVM{Tour: ft, Related: []models.Tour{}, Degraded: true}, nil
			}
		}
		return TourVM{}, err
	}

	vm := TourVM{Tour: t, Related: []models.Tour{}}
	if t.Category != nil && t.Category.Slug != "" {
		q := s.tourQuery(ctx).
			Where(cmsquery.Eq("category.slug", t.Category.Slug), cmsquery.Condition{Field: "slug", Op: cmsquery.OpNe, Values: []string{t.Slug}}).
			Paginate(1, RelatedLimit).
			SortBy("-bookingCount")
		related, _, err := s.src.Tours(ctx, q)
		switch {
		case err == nil:
			vm.Related = related
		case s.degrade(ctx, "tour.related", err):
			vm.Degraded = true
		default:
			// related tours are decoration; the page still renders
			s.logger.Warn("load related tours", zap.String("slug", t.Slug), zap.Error(err))
		}
	}
	return vm, nil
}

// CategoriesVM feeds the category index.
type CategoriesVM struct {
	Categories []models.Category
	Degraded   bool
}

func (s *Service) Categories(ctx context.Context) (CategoriesVM, error) {
	cats, err := s.categories(ctx)
	if err != nil {
		if !s.degrade(ctx, "categories", err) {
			return CategoriesVM{}, err
		}
		return CategoriesVM{Categories: FallbackCategories(), Degraded: true}, nil
	}
	return CategoriesVM{Categories: cats}, nil
}

// CategoryVM feeds a category listing.
type CategoryVM struct {
	Category models.Category
	Tours    []models.Tour
	Degraded bool
}

// Category loads a category and its tours. Unknown slugs return ErrNotFound.
func (s *Service) Category(ctx context.Context, slug string) (CategoryVM, error) {
	cat, err := s.src.Category(ctx, slug)
	if err != nil {
		if !s.degrade(ctx, "category", err) {
			return CategoryVM{}, err
		}
		for _, fc := range FallbackCategories() {
			if fc.Slug == slug {
				return CategoryVM{
					Category: fc,
					Tours:    filterFallback(FallbackTours(), TourFilter{Category: slug}),
					Degraded: true,
				}, nil
			}
		}
		return CategoryVM{}, err
	}

	vm := CategoryVM{Category: cat}
	q := s.tourQuery(ctx).Where(cmsquery.Eq("category.slug", cat.Slug)).Paginate(1, cmsquery.MaxPageSize).SortBy("-publishedAt")
	tours, _, err := s.src.Tours(ctx, q)
	if err != nil {
		if !s.degrade(ctx, "category.tours", err) {
			return CategoryVM{}, err
		}
		tours, vm.Degraded = filterFallback(FallbackTours(), TourFilter{Category: slug}), true
	}
	vm.Tours = tours
	return vm, nil
}

// SearchVM feeds the search page.
type SearchVM struct {
	Query    string
	Tours    []models.Tour
	Total    int64
	Degraded bool
}

// Search matches q case-insensitively against title, destination, and
// short description. Ranking is whatever order the CMS returns. An empty
// query returns an empty result without calling the CMS.
func (s *Service) Search(ctx context.Context, q string) (SearchVM, error) {
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > MaxSearchQuery {
		q = string(r[:MaxSearchQuery])
	}
	vm := SearchVM{Query: q, Tours: []models.Tour{}}
	if q == "" {
		return vm, nil
	}

	query := s.tourQuery(ctx).
		AnyOf(
			cmsquery.ContainsFold("title", q),
			cmsquery.ContainsFold("destination", q),
			cmsquery.ContainsFold("shortDescription", q),
		).
		Paginate(1, SearchPageSize)
	tours, p, err := s.src.Tours(ctx, query)
	if err != nil {
		if !s.degrade(ctx, "search", err) {
			return SearchVM{}, err
		}
		vm.Degraded = true
		return vm, nil
	}
	vm.Tours, vm.Total = tours, p.Total
	return vm, nil
}

// PageVM feeds an informational page.
type PageVM struct {
	Page     models.Page
	Degraded bool
}

// Page loads an informational page. Known slugs fall back to a default
// page when the CMS has none or is down; other slugs return ErrNotFound.
func (s *Service) Page(ctx context.Context, slug string) (PageVM, error) {
	if !models.IsValidPageSlug(slug) {
		return PageVM{}, ErrNotFound
	}
	p, err := s.src.Page(ctx, slug)
	switch {
	case err == nil:
		if p.Title == "" {
			p.Title = models.DefaultPageTitle(slug)
		}
		return PageVM{Page: p}, nil
	case isNotFound(err):
		return PageVM{Page: DefaultPage(slug)}, nil
	case s.degrade(ctx, "page", err):
		return PageVM{Page: DefaultPage(slug), Degraded: true}, nil
	}
	return PageVM{}, err
}
