// Package fakecms is an in-memory content source for storefront tests.
package fakecms

import (
	"context"
	"sync"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

// ErrDown is what Content returns while it is down.
var ErrDown = &content.TransportError{URL: "http://cms.test/api", Err: context.DeadlineExceeded}

// Content is an in-memory stand-in for the content client. It
// satisfies the storefront catalog source and the engagement counter.
// Collection calls ignore filters and return every entry.
type Content struct {
	mu sync.Mutex

	tours    []models.Tour
	cats     []models.Category
	settings *models.SiteSettings
	pages    map[string]models.Page
	down     bool
	calls    int
	updates  map[string]models.Counts
}

// New returns a fake CMS holding tours and categories.
func New(tours []models.Tour, cats []models.Category) *Content {
	return &Content{
		tours:   tours,
		cats:    cats,
		pages:   map[string]models.Page{},
		updates: map[string]models.Counts{},
	}
}

// SetSettings stores the settings singleton.
func (f *Content) SetSettings(s models.SiteSettings) {
	f.mu.Lock()
	f.settings = &s
	f.mu.Unlock()
}

// SetPage stores an informational page.
func (f *Content) SetPage(p models.Page) {
	f.mu.Lock()
	f.pages[p.Slug] = p
	f.mu.Unlock()
}

// SetDown makes every call fail as if the CMS were unreachable.
func (f *Content) SetDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

// Calls returns how many calls were made.
func (f *Content) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Updated returns the last counters written for documentID.
func (f *Content) Updated(documentID string) (models.Counts, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.updates[documentID]
	return c, ok
}

func (f *Content) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return ErrDown
	}
	return nil
}

func (f *Content) Tours(_ context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error) {
	if err := f.begin(); err != nil {
		return nil, jsonutil.Pagination{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Tour(nil), f.tours...)
	return out, jsonutil.Pagination{Page: 1, PageSize: int64(max(q.PageSize, 1)), PageCount: 1, Total: int64(len(out))}, nil
}

func (f *Content) Tour(_ context.Context, idOrSlug string, _ bool) (models.Tour, error) {
	if err := f.begin(); err != nil {
		return models.Tour{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tours {
		if t.Slug == idOrSlug || t.DocumentID == idOrSlug {
			return t, nil
		}
	}
	return models.Tour{}, content.ErrNotFound
}

func (f *Content) Categories(_ context.Context, _ cmsquery.Query) ([]models.Category, jsonutil.Pagination, error) {
	if err := f.begin(); err != nil {
		return nil, jsonutil.Pagination{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Category(nil), f.cats...)
	return out, jsonutil.Pagination{Page: 1, PageCount: 1, Total: int64(len(out))}, nil
}

func (f *Content) Category(_ context.Context, idOrSlug string) (models.Category, error) {
	if err := f.begin(); err != nil {
		return models.Category{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cats {
		if c.Slug == idOrSlug || c.DocumentID == idOrSlug {
			return c, nil
		}
	}
	return models.Category{}, content.ErrNotFound
}

func (f *Content) SiteSettings(context.Context) (models.SiteSettings, error) {
	if err := f.begin(); err != nil {
		return models.SiteSettings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return models.SiteSettings{}, content.ErrNotFound
	}
	return *f.settings, nil
}

func (f *Content) Page(_ context.Context, slug string) (models.Page, error) {
	if err := f.begin(); err != nil {
		return models.Page{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[slug]; ok {
		return p, nil
	}
	return models.Page{}, content.ErrNotFound
}

// UpdateTourCounts records the write and applies it to the stored tour.
func (f *Content) UpdateTourCounts(_ context.Context, documentID string, counts models.Counts) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tours {
		if f.tours[i].DocumentID == documentID {
			f.tours[i].ReviewCount = counts.ReviewCount
			f.tours[i].BookingCount = counts.BookingCount
			f.updates[documentID] = counts
			return nil
		}
	}
	return content.ErrNotFound
}

// Ping answers like the content client's keep-alive call.
func (f *Content) Ping(context.Context) error {
	return f.begin()
}
