// internal/app/system/engagement/engagement.go
package engagement

import (
	"context"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

// Counter is the slice of the content client engagement needs.
type Counter interface {
	Tour(ctx context.Context, idOrSlug string, draft bool) (models.Tour, error)
	Tours(ctx context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error)
	UpdateTourCounts(ctx context.Context, documentID string, counts models.Counts) error
}

// ViewDelta is what one counted view adds to a tour.
var ViewDelta = models.Counts{ReviewCount: 1, BookingCount: 1}

// IncrementOnView writes current plus ViewDelta back to the tour and
// returns the new counts.
//
// This is read-then-write: current was read earlier by the caller, so two
// concurrent views of one tour can both write current+1 and one increment
// is lost. The counters are decorative social proof and the loss is
// accepted; an atomic $inc endpoint on the content API would close it.
func IncrementOnView(ctx context.Context, c Counter, documentID string, current models.Counts) (models.Counts, error) {
	next := current.Clamped().Add(ViewDelta)
	if err := c.UpdateTourCounts(ctx, documentID, next); err != nil {
		return current, err
	}
	return next, nil
}
