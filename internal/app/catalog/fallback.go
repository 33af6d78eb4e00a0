package catalog

import "github.com/dalemusser/stratatour/internal/domain/models"

// FallbackCategories is served when the CMS cannot list categories.
func FallbackCategories() []models.Category {
	return models.DefaultCategories()
}

// FallbackTours is served in place of featured tours during an outage.
// Counters are zeroed so stale numbers are not presented as live.
func FallbackTours() []models.Tour {
	tours := models.SampleTours()
	for i := range tours {
		tours[i].ReviewCount = 0
		tours[i].BookingCount = 0
	}
	return tours
}

// DefaultPage is served for a known page slug the CMS has no content for.
func DefaultPage(slug string) models.Page {
	return models.DefaultPage(slug)
}
