// internal/app/store/tours/tourstore.go
package tourstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratatour/internal/app/store/storeutil"
	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no version of the tour exists.
	ErrNotFound = errors.New("tour not found")
	// ErrDuplicateSlug is returned when another tour already uses the slug.
	ErrDuplicateSlug = errors.New("tour slug already in use")
)

// Fields is the queryable surface of the tours resource.
var Fields = cmsquery.Schema{
	"documentId":          {BSON: "document_id"},
	"slug":                {BSON: "slug"},
	"title":               {BSON: "title"},
	"shortDescription":    {BSON: "short_description"},
	"content":             {BSON: "content"},
	"price":               {BSON: "price", Kind: cmsquery.Number},
	"originalPrice":       {BSON: "original_price", Kind: cmsquery.Number},
	"destination":         {BSON: "destination"},
	"duration":            {BSON: "duration"},
	"departure":           {BSON: "departure"},
	"category":            {BSON: "category"},
	"category.slug":       {BSON: "category.slug"},
	"category.documentId": {BSON: "category.document_id"},
	"thumbnail":           {BSON: "thumbnail"},
	"gallery":             {BSON: "gallery"},
	"file":                {BSON: "file"},
	"itinerary":           {BSON: "itinerary"},
	"includes":            {BSON: "includes"},
	"excludes":            {BSON: "excludes"},
	"notes":               {BSON: "notes"},
	"rating":              {BSON: "rating", Kind: cmsquery.Number},
	"reviewCount":         {BSON: "review_count", Kind: cmsquery.Number},
	"bookingCount":        {BSON: "booking_count", Kind: cmsquery.Number},
	"featured":            {BSON: "featured", Kind: cmsquery.Bool},
	"createdAt":           {BSON: "created_at", Kind: cmsquery.Time},
	"updatedAt":           {BSON: "updated_at", Kind: cmsquery.Time},
	"publishedAt":         {BSON: "published_at", Kind: cmsquery.Time},
}

var defaultSort = bson.D{{Key: "featured", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

// Store provides access to the tours collection.
// Each tour has a draft version and, once published, a published version
// sharing the same document_id.
type Store struct {
	c *mongo.Collection
}

// New creates a new tour store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tours")}
}

// Find returns one page of tours matching q and the total match count.
// q.Draft selects draft versions; otherwise only published versions match.
func (s *Store) Find(ctx context.Context, q cmsquery.Query) ([]models.Tour, int64, error) {
	filter, err := Fields.Filter(q)
	if err != nil {
		return nil, 0, err
	}
	filter = bson.M{"$and": []bson.M{filter, {"published": !q.Draft}}}

	proj, err := Fields.Projection(q, "document_id", "published", "published_at")
	if err != nil {
		return nil, 0, err
	}
	sortDoc, err := Fields.SortDoc(q, defaultSort)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := storeutil.Paginate(int64(q.PageSize), int64(q.Page)).SetSort(sortDoc)
	if proj != nil {
		opts.SetProjection(proj)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	tours := []models.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, 0, err
	}
	return tours, total, nil
}

// GetByDocumentID returns the draft or published version of a tour.
func (s *Store) GetByDocumentID(ctx context.Context, documentID string, draft bool) (models.Tour, error) {
	var t models.Tour
	err := s.c.FindOne(ctx, bson.M{"document_id": documentID, "published": !draft}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return models.Tour{}, ErrNotFound
	}
	if err != nil {
		return models.Tour{}, err
	}
	return t, nil
}

// Create inserts a new tour as a draft and, when publish is true, also as
// a published version. It returns the version callers asked for.
func (s *Store) Create(ctx context.Context, t models.Tour, publish bool) (models.Tour, error) {
	now := time.Now().UTC()
	t.ID = primitive.NilObjectID
	t.DocumentID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Published = false
	t.PublishedAt = nil

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tour{}, ErrDuplicateSlug
		}
		return models.Tour{}, err
	}
	if !publish {
		return s.GetByDocumentID(ctx, t.DocumentID, true)
	}
	return s.Publish(ctx, t.DocumentID)
}

// Update applies set to the draft and, when publish is true, to the
// published version as well. A tour that was never published gets its
// draft copied over instead.
func (s *Store) Update(ctx context.Context, documentID string, set bson.M, publish bool) (models.Tour, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx, bson.M{"document_id": documentID, "published": false}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tour{}, ErrDuplicateSlug
		}
		return models.Tour{}, err
	}
	if res.MatchedCount == 0 {
		return models.Tour{}, ErrNotFound
	}
	if !publish {
		return s.GetByDocumentID(ctx, documentID, true)
	}

	res, err = s.c.UpdateOne(ctx, bson.M{"document_id": documentID, "published": true}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tour{}, ErrDuplicateSlug
		}
		return models.Tour{}, err
	}
	if res.MatchedCount == 0 {
		return s.Publish(ctx, documentID)
	}
	return s.GetByDocumentID(ctx, documentID, false)
}

// Publish copies the draft over the published version, creating it if needed.
func (s *Store) Publish(ctx context.Context, documentID string) (models.Tour, error) {
	draft, err := s.GetByDocumentID(ctx, documentID, true)
	if err != nil {
		return models.Tour{}, err
	}

	now := time.Now().UTC()
	pub := draft
	pub.ID = primitive.NilObjectID
	pub.Published = true
	pub.PublishedAt = &now

	filter := bson.M{"document_id": documentID, "published": true}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.c.ReplaceOne(ctx, filter, pub, opts); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tour{}, ErrDuplicateSlug
		}
		return models.Tour{}, err
	}
	return s.GetByDocumentID(ctx, documentID, false)
}

// Delete removes every version of a tour and returns the draft as it was.
func (s *Store) Delete(ctx context.Context, documentID string) (models.Tour, error) {
	t, err := s.GetByDocumentID(ctx, documentID, true)
	if err != nil {
		return models.Tour{}, err
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return models.Tour{}, err
	}
	return t, nil
}

// RenameCategory rewrites the embedded category link on every tour that
// points at ref.DocumentID and returns the published slugs affected.
func (s *Store) RenameCategory(ctx context.Context, ref models.CategoryRef) ([]string, error) {
	filter := bson.M{"category.document_id": ref.DocumentID}
	if _, err := s.c.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"category": ref}}); err != nil {
		return nil, err
	}
	return s.publishedSlugs(ctx, filter)
}

// DetachCategory removes the category link from tours of a deleted
// category and returns the published slugs affected.
func (s *Store) DetachCategory(ctx context.Context, categoryDocumentID string) ([]string, error) {
	filter := bson.M{"category.document_id": categoryDocumentID}
	slugs, err := s.publishedSlugs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if _, err := s.c.UpdateMany(ctx, filter, bson.M{"$unset": bson.M{"category": ""}}); err != nil {
		return nil, err
	}
	return slugs, nil
}

func (s *Store) publishedSlugs(ctx context.Context, filter bson.M) ([]string, error) {
	f := bson.M{"published": true}
	for k, v := range filter {
		f[k] = v
	}
	vals, err := s.c.Distinct(ctx, "slug", f)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			slugs = append(slugs, str)
		}
	}
	return slugs, nil
}

// Count returns the number of published tours.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"published": true})
}
